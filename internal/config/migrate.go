package config

import (
	"github.com/tidwall/gjson"
)

// Legacy keys left by older installs
const (
	legacyPackageKey = "target_navi_package"
	legacyLabelKey   = "target_navi_label"
	legacyListKey    = "target_app_list"
)

// migrateLegacy fills an empty launch list on first load. A legacy JSON list
// string wins over the single legacy package; with neither, the list gets the
// default navigation app. It reports whether data changed and must be saved.
func migrateLegacy(raw []byte, data *fileData) bool {
	hasLegacyKeys := gjson.GetBytes(raw, legacyPackageKey).Exists() ||
		gjson.GetBytes(raw, legacyLabelKey).Exists() ||
		gjson.GetBytes(raw, legacyListKey).Exists()

	// fileData has no legacy fields, so saving drops any leftover keys
	if data.LegacyMigrated || len(data.TargetApps) > 0 {
		changed := !data.LegacyMigrated || hasLegacyKeys
		data.LegacyMigrated = true
		return changed
	}

	if list := gjson.GetBytes(raw, legacyListKey); list.Exists() {
		data.TargetApps = parseLegacyList(list)
	}

	if len(data.TargetApps) == 0 {
		pkg := gjson.GetBytes(raw, legacyPackageKey)
		label := gjson.GetBytes(raw, legacyLabelKey)
		app := TargetApp{Package: LegacyPackage, Label: LegacyLabel}
		if pkg.Exists() && pkg.Type == gjson.String {
			app.Package = pkg.String()
			if label.Exists() && label.String() != "" {
				app.Label = label.String()
			}
		}
		data.TargetApps = []TargetApp{app}
	}

	data.LegacyMigrated = true
	return true
}

// parseLegacyList reads the list stored either as a JSON string or as an array
func parseLegacyList(list gjson.Result) []TargetApp {
	parsed := list
	if list.Type == gjson.String {
		if !gjson.Valid(list.String()) {
			return nil
		}
		parsed = gjson.Parse(list.String())
	}
	if !parsed.IsArray() {
		return nil
	}

	var apps []TargetApp
	parsed.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		label := item.Get("label").String()
		if label == "" {
			label = PlaceholderLabel
		}
		apps = append(apps, TargetApp{
			Package: item.Get("package").String(),
			Label:   label,
		})
		return true
	})
	return apps
}
