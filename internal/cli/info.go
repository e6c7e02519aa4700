/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"multicanvas/internal/locale"
)

// projectInfo is the JSON shape of one project in info output.
type projectInfo struct {
	Index     int         `json:"index"`
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Active    bool        `json:"active"`
	Layers    int         `json:"layers"`
	Bookmarks int         `json:"bookmarks"`
	CRS       string      `json:"crs"`
	Extent    *[4]float64 `json:"extent"`
	File      string      `json:"file,omitempty"`
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "List the projects of the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return readWorkspace(func(lv *live) error {
			reg := lv.reg
			var infos []projectInfo
			for i, s := range reg.Snapshots() {
				pi := projectInfo{
					Index:     i + 1,
					ID:        s.ID,
					Name:      s.Name,
					Active:    i == reg.ActiveIndex(),
					Layers:    s.LayerCount,
					Bookmarks: len(s.Bookmarks),
					CRS:       s.CRS,
					File:      s.PersistedPath,
				}
				if s.Extent != nil {
					a := s.Extent.Array()
					pi.Extent = &a
				}
				infos = append(infos, pi)
			}
			if jsonOutput {
				return outputJSON(map[string]any{"workspace": lv.path, "projects": infos})
			}

			PrintSection(loc.T(locale.MsgProjects))
			PrintLabelValue("Workspace", lv.path)
			PrintInfo("")
			rows := make([][]string, 0, len(infos))
			for i, pi := range infos {
				extent := "-"
				if s := reg.Snapshots()[i]; s.Extent != nil {
					extent = s.Extent.String()
				}
				file := pi.File
				if file == "" {
					file = loc.T(locale.MsgNotSaved)
				}
				rows = append(rows, []string{
					projectLabel(reg, i),
					pi.Name,
					strconv.Itoa(pi.Layers),
					strconv.Itoa(pi.Bookmarks),
					pi.CRS,
					extent,
					file,
				})
			}
			PrintTable([]string{"#", "Name", "Layers", "Bookmarks", "CRS", "Extent", "File"}, rows)
			return nil
		})
	},
}
