/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"multicanvas/internal/locale"
	"multicanvas/internal/registry"
)

var saveProject bool

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the workspace manifest",
	Long: `Save the workspace manifest and the content of every project next to it.

With --project the active project is also written to its own file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		err := withWorkspace(func(lv *live) error {
			path = lv.path
			if !saveProject {
				return nil
			}
			if err := lv.reg.SaveCurrent(); err != nil {
				if errors.Is(err, registry.ErrNotPersisted) {
					return errors.New("the active project has no file yet: use save-as")
				}
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !jsonOutput {
			PrintSuccess(loc.Tf(locale.MsgWorkspaceSaved, map[string]any{"Path": path}))
		}
		return nil
	},
}

func init() {
	saveCmd.Flags().BoolVarP(&saveProject, "project", "p", false, "Also save the active project to its file")
}
