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

	"github.com/spf13/cobra"

	"multicanvas/internal/host/dochost"
	"multicanvas/internal/locale"
)

var (
	layerExtent string
	layerSource string
)

var layerCmd = &cobra.Command{
	Use:   "layer",
	Short: "Edit the layers of the active project",
}

var layerAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a layer to the active project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ld := dochost.LayerDoc{Name: args[0], Source: layerSource}
		if layerExtent != "" {
			e, err := parseExtent(layerExtent)
			if err != nil {
				return err
			}
			ld.Extent = &e
		}
		return withWorkspace(func(lv *live) error {
			added := lv.doc.AddLayer(ld)
			if !jsonOutput {
				PrintSuccess(fmt.Sprintf("Layer %s added to %s", added.ID, lv.reg.Active().Name))
			}
			return nil
		})
	},
}

var layerRmCmd = &cobra.Command{
	Use:   "rm <layer-id>",
	Short: "Remove a layer from the active project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(lv *live) error {
			if !lv.doc.RemoveLayer(args[0]) {
				return fmt.Errorf("no layer %q in %s", args[0], lv.reg.Active().Name)
			}
			if !jsonOutput {
				PrintSuccess("Layer " + args[0] + " removed")
			}
			return nil
		})
	},
}

var layerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the layers of the active project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return readWorkspace(func(lv *live) error {
			layers := lv.doc.Layers()
			if jsonOutput {
				if layers == nil {
					layers = []dochost.LayerDoc{}
				}
				return outputJSON(layers)
			}
			PrintSection(lv.reg.Active().Name)
			if len(layers) == 0 {
				PrintEmptyState(loc.Count(locale.MsgLayerCount, 0))
				return nil
			}
			rows := make([][]string, 0, len(layers))
			for _, l := range layers {
				extent := "-"
				if l.Extent != nil {
					extent = l.Extent.String()
				}
				rows = append(rows, []string{l.ID, l.Name, extent, l.Source})
			}
			PrintTable([]string{"ID", "Name", "Extent", "Source"}, rows)
			return nil
		})
	},
}

func init() {
	layerAddCmd.Flags().StringVar(&layerExtent, "extent", "", "Layer extent as xmin,ymin,xmax,ymax")
	layerAddCmd.Flags().StringVar(&layerSource, "source", "", "Layer data source")
	layerCmd.AddCommand(layerAddCmd, layerRmCmd, layerListCmd)
}
