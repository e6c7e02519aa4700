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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"multicanvas/internal/locale"
	"multicanvas/internal/workspace"
)

var (
	initForce bool
	initName  string
)

var initCmd = &cobra.Command{
	Use:   "init <manifest>",
	Short: "Create a workspace with one empty project",
	Long: `Create a new workspace manifest holding a single empty project.

The ` + workspace.ManifestExt + ` extension is added when the path has none.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if filepath.Ext(path) == "" {
			path += workspace.ManifestExt
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		lv, err := newLive(path)
		if err != nil {
			return err
		}
		if initName != "" {
			err = lv.reg.Rename(0, initName)
		}
		if err == nil {
			err = lv.commit()
		}
		lv.close()
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]string{"workspace": path})
		}
		PrintSuccess(loc.Tf(locale.MsgWorkspaceCreated, map[string]any{"Path": path}))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing manifest")
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "Name of the first project")
}
