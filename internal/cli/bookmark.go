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

	"multicanvas/internal/locale"
	"multicanvas/internal/snapshot"
)

var bookmarkExtent string

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark",
	Short: "Manage the bookmarks of the active project",
}

var bookmarkAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Bookmark the current view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			if bookmarkExtent != "" {
				e, err := parseExtent(bookmarkExtent)
				if err != nil {
					return err
				}
				lv.canvas.SetExtent(e)
			}
			_, err := lv.reg.AddBookmark(args[0])
			return err
		})
	},
}

var bookmarkRmCmd = &cobra.Command{
	Use:   "rm <bookmark>",
	Short: "Delete a bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			s := lv.reg.Active()
			i, err := bookmarkRef(s, args[0])
			if err != nil {
				return err
			}
			name := s.Bookmarks[i].Name
			s.RemoveBookmark(i)
			if !jsonOutput {
				PrintSuccess("Bookmark removed: " + name)
			}
			return nil
		})
	},
}

var bookmarkRenameCmd = &cobra.Command{
	Use:   "rename <bookmark> <name>",
	Short: "Rename a bookmark",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			s := lv.reg.Active()
			i, err := bookmarkRef(s, args[0])
			if err != nil {
				return err
			}
			if !s.RenameBookmark(i, args[1]) {
				return fmt.Errorf("bookmark name must not be empty")
			}
			if !jsonOutput {
				PrintSuccess(loc.Tf(locale.MsgRenamed, map[string]any{"Name": args[1]}))
			}
			return nil
		})
	},
}

var bookmarkGoCmd = &cobra.Command{
	Use:   "go <bookmark>",
	Short: "Move the view to a bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			s := lv.reg.Active()
			i, err := bookmarkRef(s, args[0])
			if err != nil {
				return err
			}
			lv.reg.ActivateBookmark(s.Bookmarks[i])
			return printView(lv)
		})
	},
}

var bookmarkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bookmarks of the active project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return readWorkspace(func(lv *live) error {
			s := lv.reg.Active()
			if jsonOutput {
				return outputJSON(s.ToRecord().Bookmarks)
			}
			PrintSection(loc.T(locale.MsgBookmarks) + ": " + s.Name)
			if len(s.Bookmarks) == 0 {
				PrintEmptyState(loc.Count(locale.MsgBookmarkCount, 0))
				return nil
			}
			rows := make([][]string, 0, len(s.Bookmarks))
			for i, b := range s.Bookmarks {
				rows = append(rows, []string{strconv.Itoa(i + 1), b.Name, b.Extent.String(), b.CRS})
			}
			PrintTable([]string{"#", "Name", "Extent", "CRS"}, rows)
			return nil
		})
	},
}

// bookmarkRef resolves a bookmark given as a 1-based position or a name.
func bookmarkRef(s *snapshot.Snapshot, ref string) (int, error) {
	if i := s.FindBookmark(ref); i >= 0 {
		return i, nil
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(s.Bookmarks) {
		return n - 1, nil
	}
	return 0, fmt.Errorf("no bookmark %q in %s", ref, s.Name)
}

func init() {
	bookmarkAddCmd.Flags().StringVar(&bookmarkExtent, "extent", "", "Bookmark this extent instead of the current view")
	bookmarkCmd.AddCommand(bookmarkAddCmd, bookmarkRmCmd, bookmarkRenameCmd, bookmarkGoCmd, bookmarkListCmd)
}
