package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/logging"
)

// PublicGroup is the group flat-layout items migrate into.
const PublicGroup = "public"

// discoverGroups returns the immediate subdirectories of root that hold a
// group catalogue. Names starting with "_" are skipped.
func discoverGroups(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.CodeLoadError, err, "scan catalogue root %s", root)
	}
	var groups []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), "_") {
			groups = append(groups, e.Name())
		}
	}
	return groups, nil
}

// itemDirs lists the item directories of one group.
func itemDirs(root, group string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, group))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeLoadError, err, "scan group %s", group)
	}
	var items []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), "_") {
			items = append(items, e.Name())
		}
	}
	return items, nil
}

// migrateFlatLayout moves item directories found directly under root into
// root/public/ and rewrites their metadata group to "public". An item
// directory is recognized by the presence of metaFilename inside it.
//
// The migration is idempotent per item: a partial failure leaves the
// remaining items in place for the next startup to retry.
func migrateFlatLayout(root, metaFilename string, logger logging.Logger) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperr.Wrap(apperr.CodeLoadError, err, "scan catalogue root %s", root)
	}

	for _, e := range entries {
		if !e.IsDir() || e.Name() == PublicGroup || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		metaPath := filepath.Join(root, e.Name(), metaFilename)
		if _, err := os.Stat(metaPath); err != nil {
			// No metadata file directly inside: this is a group directory,
			// not a flat-layout item.
			continue
		}

		target := filepath.Join(root, PublicGroup, e.Name())
		if err := os.MkdirAll(filepath.Join(root, PublicGroup), 0o755); err != nil {
			return apperr.Wrap(apperr.CodeLoadError, err, "create public group dir")
		}
		if err := os.Rename(filepath.Join(root, e.Name()), target); err != nil {
			return apperr.Wrap(apperr.CodeLoadError, err, "migrate item %s to public group", e.Name())
		}
		if err := rewriteGroup(filepath.Join(target, metaFilename), PublicGroup); err != nil {
			return err
		}
		logger.Warn("migrated flat-layout item %s into group %q", e.Name(), PublicGroup)
	}
	return nil
}

// rewriteGroup sets the group field of a metadata file in place.
func rewriteGroup(metaPath, group string) error {
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return apperr.Wrap(apperr.CodeLoadError, err, "read metadata %s", metaPath)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return apperr.Wrap(apperr.CodeLoadError, err, "parse metadata %s", metaPath)
	}
	doc["group"] = group
	out, err := yaml.Marshal(doc)
	if err != nil {
		return apperr.Wrap(apperr.CodeLoadError, err, "encode metadata %s", metaPath)
	}
	if err := os.WriteFile(metaPath, out, 0o644); err != nil {
		return apperr.Wrap(apperr.CodeLoadError, err, "rewrite metadata %s", metaPath)
	}
	return nil
}

// checkGroup enforces the directory/metadata agreement invariant.
func checkGroup(itemID, dirGroup, metaGroup string) error {
	if metaGroup != dirGroup {
		return apperr.New(apperr.CodeGroupMismatch,
			"item %q declares group %q but lives in group directory %q", itemID, metaGroup, dirGroup).
			WithDetail("item_id", itemID).
			WithDetail("expected", dirGroup).
			WithDetail("actual", metaGroup)
	}
	return nil
}

// readMeta parses a YAML metadata file into dst.
func readMeta(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrap(apperr.CodeLoadError, err, "read %s", path)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return apperr.Wrap(apperr.CodeLoadError, err, "parse %s", path)
	}
	return nil
}

func keyOf(group, id string) string { return fmt.Sprintf("%s/%s", group, id) }
