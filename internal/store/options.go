package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/elliotchance/phpserialize"

	"github.com/danielbachhuber/host-check-command/internal/constants"
)

// ActivePlugins decodes the serialized active_plugins option. Duplicates are
// dropped, keeping the first occurrence. A missing or undecodable option
// yields nil.
func (s *Store) ActivePlugins(ctx context.Context) ([]string, error) {
	raw, err := s.GetOption(ctx, constants.OptionActivePlugins, "")
	if err != nil || raw == "" {
		return nil, err
	}
	list, err := DecodeList(raw)
	if err != nil {
		s.logger.Debug("active_plugins is not a serialized array", "error", err)
		return nil, nil
	}
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, p := range list {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

// ActiveTheme returns the stylesheet option.
func (s *Store) ActiveTheme(ctx context.Context) (string, bool, error) {
	return s.LookupOption(ctx, constants.OptionStylesheet)
}

// NextScheduled returns the earliest cron timestamp carrying hook. WordPress
// keeps the cron array sorted, so this is the first matching entry.
func (s *Store) NextScheduled(ctx context.Context, hook string) (time.Time, bool, error) {
	raw, err := s.GetOption(ctx, constants.OptionCron, "")
	if err != nil || raw == "" {
		return time.Time{}, false, err
	}
	ts, ok := FindScheduled(raw, hook)
	if !ok {
		return time.Time{}, false, nil
	}
	return time.Unix(ts, 0).UTC(), true, nil
}

// DecodeList decodes a serialized PHP list of strings, ordered by index.
func DecodeList(raw string) ([]string, error) {
	arr, err := phpserialize.UnmarshalAssociativeArray([]byte(raw))
	if err != nil {
		return nil, err
	}
	type entry struct {
		idx int64
		val string
	}
	entries := make([]entry, 0, len(arr))
	for k, v := range arr {
		idx, ok := k.(int64)
		if !ok {
			continue
		}
		str, ok := v.(string)
		if !ok {
			str = fmt.Sprint(v)
		}
		entries = append(entries, entry{idx, str})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.val
	}
	return out, nil
}

// FindScheduled scans a serialized cron option for the earliest timestamp
// whose event list contains hook.
func FindScheduled(raw, hook string) (int64, bool) {
	cron, err := phpserialize.UnmarshalAssociativeArray([]byte(raw))
	if err != nil {
		return 0, false
	}
	var best int64
	found := false
	for k, v := range cron {
		ts, ok := k.(int64)
		if !ok {
			continue
		}
		events, ok := v.(map[interface{}]interface{})
		if !ok {
			continue
		}
		if _, ok := events[hook]; !ok {
			continue
		}
		if !found || ts < best {
			best, found = ts, true
		}
	}
	return best, found
}
