/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"github.com/spf13/cobra"

	"multicanvas/internal/domain"
	"multicanvas/internal/locale"
)

var (
	viewCRS  string
	viewFull bool
)

var viewCmd = &cobra.Command{
	Use:   "view [xmin,ymin,xmax,ymax]",
	Short: "Show or change the view of the active project",
	Long: `Without arguments print the current view. With an extent, or --full for
the extent of all layers, move the view there. Every change is remembered for
back and forward. Use "--" before extents with negative numbers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !viewFull && viewCRS == "" {
			return readWorkspace(func(lv *live) error {
				return printView(lv)
			})
		}
		var target *domain.Extent
		if len(args) == 1 {
			e, err := parseExtent(args[0])
			if err != nil {
				return err
			}
			target = &e
		}
		if viewCRS != "" {
			if err := domain.ValidateCRS(viewCRS); err != nil {
				return err
			}
		}
		return withWorkspace(func(lv *live) error {
			if viewCRS != "" {
				lv.canvas.SetDestinationCRS(domain.NormalizeCRS(viewCRS))
			}
			if viewFull {
				if e, ok := lv.doc.FullExtent(); ok && !e.IsDegenerate() {
					target = &e
				}
			}
			if target != nil {
				lv.canvas.SetExtent(*target)
			} else if viewCRS != "" {
				// a CRS change alone is still a new view
				lv.reg.OnExtentChanged()
			}
			lv.canvas.Refresh()
			return printView(lv)
		})
	},
}

func printView(lv *live) error {
	e, crs := lv.canvas.Extent(), lv.canvas.DestinationCRS()
	if jsonOutput {
		return outputJSON(map[string]any{"project": lv.reg.Active().Name, "extent": e.Array(), "crs": crs})
	}
	PrintLabelValue(loc.T(locale.MsgProject), lv.reg.Active().Name)
	PrintLabelValue("Extent", e.String())
	PrintLabelValue("CRS", crs)
	return nil
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Give every project the view of the active one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			lv.reg.SyncExtentToAll()
			return nil
		})
	},
}

var backCmd = &cobra.Command{
	Use:   "back",
	Short: "Return to the previous view of the active project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			if !lv.reg.GoBack() {
				PrintWarning(loc.T(locale.MsgAtStart))
				return nil
			}
			return printView(lv)
		})
	},
}

var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Redo a view change undone by back",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			if !lv.reg.GoForward() {
				PrintWarning(loc.T(locale.MsgAtEnd))
				return nil
			}
			return printView(lv)
		})
	},
}

func init() {
	viewCmd.Flags().StringVar(&viewCRS, "crs", "", "Destination CRS, e.g. EPSG:3857")
	viewCmd.Flags().BoolVar(&viewFull, "full", false, "Zoom to the extent of all layers")
}
