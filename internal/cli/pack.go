/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"multicanvas/internal/session"
	"multicanvas/internal/workspace"
)

var packCmd = &cobra.Command{
	Use:   "pack <archive.zip>",
	Short: "Bundle the workspace and its project files into a zip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := workspacePath()
		if err != nil {
			return err
		}
		if err := workspace.Pack(path, args[0]); err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]string{"workspace": path, "archive": args[0]})
		}
		PrintSuccess("Packed " + filepath.Base(path) + " into " + args[0])
		return nil
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack <archive.zip> <dir>",
	Short: "Extract a packed workspace",
	Long: `Extract a workspace archive into dir. Files that already exist are kept.

The extracted manifest becomes the most recent workspace.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifest, err := workspace.Unpack(args[0], args[1])
		if err != nil {
			return err
		}
		if st := openRecent(); st != nil {
			_ = st.Touch(session.KindWorkspace, manifest)
			_ = st.Close()
		}
		if jsonOutput {
			return outputJSON(map[string]string{"workspace": manifest})
		}
		PrintSuccess("Unpacked workspace: " + manifest)
		return nil
	},
}
