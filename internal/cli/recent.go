/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"multicanvas/internal/session"
)

var (
	recentProjects bool
	recentLimit    int
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently used workspaces or project files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openRecent()
		if st == nil {
			return fmt.Errorf("session store unavailable")
		}
		defer func() { _ = st.Close() }()

		kind := session.KindWorkspace
		if recentProjects {
			kind = session.KindProject
		}
		entries, err := st.Recent(kind, recentLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			if entries == nil {
				entries = []session.Entry{}
			}
			return outputJSON(entries)
		}

		PrintSection("Recent " + string(kind))
		if len(entries) == 0 {
			PrintEmptyState("nothing yet")
			return nil
		}
		rows := make([][]string, 0, len(entries))
		for i, e := range entries {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				e.Path,
				e.LastUsed.Local().Format("2006-01-02 15:04"),
				strconv.Itoa(e.Uses),
			})
		}
		PrintTable([]string{"#", "Path", "Last used", "Uses"}, rows)
		return nil
	},
}

func init() {
	recentCmd.Flags().BoolVarP(&recentProjects, "projects", "p", false, "List project files instead of workspaces")
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 10, "Maximum number of entries")
}
