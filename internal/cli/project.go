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
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"multicanvas/internal/locale"
	"multicanvas/internal/registry"
	"multicanvas/internal/session"
	"multicanvas/internal/snapshot"
)

var (
	closeSave    bool
	closeDiscard bool
)

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Add an empty project and make it active",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return withWorkspace(func(lv *live) error {
			_, err := lv.reg.New(name)
			return err
		})
	},
}

var openCmd = &cobra.Command{
	Use:   "open <project-file>",
	Short: "Open a project file as a new project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		return withWorkspace(func(lv *live) error {
			if _, err := lv.reg.Open(path); err != nil {
				return err
			}
			if lv.recent != nil {
				_ = lv.recent.Touch(session.KindProject, path)
			}
			return nil
		})
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch <project>",
	Short: "Make another project active",
	Long: `Make another project active. A project is given by its position as shown
by info, by its exact name or by an ID prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			i, err := projectRef(lv.reg, args[0])
			if err != nil {
				return err
			}
			return lv.reg.SwitchTo(i)
		})
	},
}

var closeCmd = &cobra.Command{
	Use:   "close <project>",
	Short: "Close a project",
	Long: `Close a project. A modified project is only closed when --save or
--discard says what to do with its changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if closeSave && closeDiscard {
			return errors.New("--save and --discard are mutually exclusive")
		}
		return withWorkspace(func(lv *live) error {
			i, err := projectRef(lv.reg, args[0])
			if err != nil {
				return err
			}
			err = lv.reg.Close(i, closeResolver)
			if errors.Is(err, registry.ErrCanceled) {
				s, _ := lv.reg.At(i)
				return errors.New(loc.Tf(locale.MsgUnsavedChanges, map[string]any{"Name": s.Name}) + " (--save/--discard)")
			}
			return err
		})
	},
}

func closeResolver(*snapshot.Snapshot) registry.Resolution {
	switch {
	case closeSave:
		return registry.Save
	case closeDiscard:
		return registry.Discard
	default:
		return registry.Cancel
	}
}

var closeOthersCmd = &cobra.Command{
	Use:   "close-others",
	Short: "Close every project except the active one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			_, err := lv.reg.CloseOthers()
			return err
		})
	},
}

var duplicateCmd = &cobra.Command{
	Use:   "duplicate [project]",
	Short: "Copy a project, the active one by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			i := lv.reg.ActiveIndex()
			if len(args) == 1 {
				var err error
				if i, err = projectRef(lv.reg, args[0]); err != nil {
					return err
				}
			}
			_, err := lv.reg.Duplicate(i)
			return err
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <project> <name>",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			i, err := projectRef(lv.reg, args[0])
			if err != nil {
				return err
			}
			return lv.reg.Rename(i, args[1])
		})
	},
}

var moveCmd = &cobra.Command{
	Use:       "move <project> up|down",
	Short:     "Move a project one position up or down",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var dir int
		switch args[1] {
		case "up":
			dir = -1
		case "down":
			dir = 1
		default:
			return fmt.Errorf("direction %q: want up or down", args[1])
		}
		return withWorkspace(func(lv *live) error {
			i, err := projectRef(lv.reg, args[0])
			if err != nil {
				return err
			}
			return lv.reg.Move(i, dir)
		})
	},
}

var saveAsCmd = &cobra.Command{
	Use:   "save-as <project-file>",
	Short: "Save the active project to a new file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		return withWorkspace(func(lv *live) error {
			if err := lv.reg.SaveCurrentAs(path); err != nil {
				return err
			}
			if lv.recent != nil {
				_ = lv.recent.Touch(session.KindProject, path)
			}
			return nil
		})
	},
}

func init() {
	closeCmd.Flags().BoolVar(&closeSave, "save", false, "Save changes before closing")
	closeCmd.Flags().BoolVar(&closeDiscard, "discard", false, "Drop changes")
}
