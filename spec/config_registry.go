// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package spec

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zintix-labs/resamplab/errs"
)

// GetRunSettingByYAML
// 會讀取 YAML 設定、補預設值並執行基本檢查後回傳；未知欄位直接拒絕。
func GetRunSettingByYAML(data []byte) (*RunSetting, error) {
	rs := &RunSetting{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(rs); err != nil {
		return nil, errs.Wrap(errs.NewWarn(err.Error()), "failed to unmarshall yaml")
	}

	if err := rs.Init(); err != nil {
		return nil, errs.Wrap(err, "run setting initialized err")
	}
	return rs, nil
}

// GetRunSettingByJSON
// 會讀取 Json 設定、補預設值並執行基本檢查後回傳；未知欄位直接拒絕。
func GetRunSettingByJSON(data []byte) (*RunSetting, error) {
	rs := &RunSetting{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(rs); err != nil {
		return nil, errs.Wrap(errs.NewWarn(err.Error()), "can not unmarshall json byte")
	}

	if err := rs.Init(); err != nil {
		return nil, errs.Wrap(err, "run setting initialized err")
	}
	return rs, nil
}

// LoadRunSetting 從 fs.FS 讀取設定檔，依副檔名（.yaml/.yml/.json，不分大小寫）選擇解析器。
//
// 使用 fs.FS 而非檔案路徑：可以是 os.DirFS（本機開發）或 go:embed（部署）。
func LoadRunSetting(fsys fs.FS, name string) (*RunSetting, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errs.Wrap(err, "read run setting failed")
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return GetRunSettingByYAML(data)
	case ".json":
		return GetRunSettingByJSON(data)
	default:
		return nil, errs.NewFatal("invalid config filename: " + name + " (must end with .yaml, .yml, or .json)")
	}
}
