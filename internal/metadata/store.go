// Package metadata maintains the per-project CSV stores of scraped videos
// and derived profiles. Writes replace the whole file; callers serialize
// writers with Lock.
package metadata

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/extract"
	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

// ErrMissingKeyColumn is returned when a merge key is not a column of the
// tables being merged.
var ErrMissingKeyColumn = eris.New("metadata: missing key column")

// AppendAndDeduplicate loads existingPath if present, appends newRecords,
// drops duplicates by uniqueKey keeping the last occurrence, and overwrites
// existingPath with the merged table. New data wins on key collision.
// Both tables must carry uniqueKey as a column unless they have no rows;
// otherwise the store is left untouched and ErrMissingKeyColumn is returned.
func AppendAndDeduplicate(newRecords *table.Table, existingPath, uniqueKey string) (*table.Table, error) {
	existing, err := table.ReadFileIfExists(existingPath)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: load existing store")
	}
	if newRecords.Len() > 0 && !newRecords.HasColumn(uniqueKey) {
		return nil, eris.Wrapf(ErrMissingKeyColumn, "%q in new records", uniqueKey)
	}
	if existing.Len() > 0 && !existing.HasColumn(uniqueKey) {
		return nil, eris.Wrapf(ErrMissingKeyColumn, "%q in %s", uniqueKey, existingPath)
	}

	merged := table.Concat(existing, newRecords).DedupLast(uniqueKey)
	if err := merged.WriteFile(existingPath); err != nil {
		return nil, eris.Wrap(err, "metadata: write store")
	}

	zap.L().Info("metadata: store updated",
		zap.String("file", existingPath),
		zap.Int("existing", existing.Len()),
		zap.Int("new", newRecords.Len()),
		zap.Int("total", merged.Len()),
	)
	return merged, nil
}

// DeriveProfilesFromVideos projects the author metadata embedded in each
// video into a flat profile row. Rows are deduplicated by profile id
// keeping the last, and rows whose id is missing or null-like are dropped.
func DeriveProfilesFromVideos(videos *table.Table) *table.Table {
	profiles := table.New(model.ColID, model.ColProfile)
	var malformed int

	for _, v := range videos.Rows {
		meta := extract.AuthorMeta(v[model.ColAuthorMeta])
		if !meta.OK {
			malformed++
			zap.L().Debug("metadata: unparseable author metadata",
				zap.String("video_id", v[model.ColID]),
				zap.Error(meta.Err),
			)
		}

		row := table.Row(extract.Flatten(meta.Value))
		if name, ok := row["name"]; ok {
			delete(row, "name")
			row[model.ColProfile] = name
		}
		row[model.ColExtractionTime] = v[model.ColExtractionTime]
		profiles.Append(row)
	}

	out := profiles.DedupLast(model.ColID).Filter(func(r table.Row) bool {
		return model.IsValidID(r[model.ColID])
	})

	zap.L().Info("metadata: derived profiles",
		zap.Int("videos", videos.Len()),
		zap.Int("profiles", out.Len()),
		zap.Int("malformed_author_meta", malformed),
	)
	return out
}

// UpdateProfiles derives the profile store from the video store at
// videoPath and overwrites profilePath with it.
func UpdateProfiles(videoPath, profilePath string) (*table.Table, error) {
	videos, err := table.ReadFile(videoPath)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: load video store")
	}
	profiles := DeriveProfilesFromVideos(videos)
	if err := profiles.WriteFile(profilePath); err != nil {
		return nil, eris.Wrap(err, "metadata: write profile store")
	}
	return profiles, nil
}

// RankAndExportTopProfiles sorts profiles by follower count, descending,
// and writes the top n handles to path, one per line. The sort is stable:
// profiles with equal follower counts keep their input order.
func RankAndExportTopProfiles(profiles *table.Table, n int, path string) ([]string, error) {
	ranked := table.Concat(profiles, nil)
	ranked.SortStable(func(a, b table.Row) bool {
		return model.ProfileFromRow(a).Fans > model.ProfileFromRow(b).Fans
	})
	handles := ranked.Head(n).Column(model.ColProfile)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "metadata: create profile list dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: create profile list")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, h := range handles {
		if _, err := w.WriteString(h + "\n"); err != nil {
			return nil, eris.Wrap(err, "metadata: write profile list")
		}
	}
	if err := w.Flush(); err != nil {
		return nil, eris.Wrap(err, "metadata: flush profile list")
	}
	return handles, nil
}
