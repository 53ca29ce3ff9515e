package muxer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"subtrans/internal/fileutil"
)

var videoExtensions = map[string]struct{}{
	".mkv": {},
	".mp4": {},
}

// Pair is a video with its matching subtitle and planned output.
type Pair struct {
	Video    string
	Subtitle string
	Output   string
}

// FindPairs lists videos in videoDir (non-recursive, sorted by name) and
// matches each with <stem>.srt in subtitleDir. Videos without a subtitle are
// returned in missing. Output names are <stem><suffix>.mkv under outputDir.
func FindPairs(videoDir, subtitleDir, outputDir, suffix string) ([]Pair, []string, error) {
	if subtitleDir == "" {
		subtitleDir = videoDir
	}
	if outputDir == "" {
		outputDir = videoDir
	}
	entries, err := os.ReadDir(videoDir)
	if err != nil {
		return nil, nil, fmt.Errorf("read video dir: %w", err)
	}

	subtitles, err := subtitleIndex(subtitleDir)
	if err != nil {
		return nil, nil, err
	}

	var (
		pairs   []Pair
		missing []string
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		srtPath, ok := subtitles[stem]
		if !ok {
			missing = append(missing, filepath.Join(videoDir, name))
			continue
		}
		pairs = append(pairs, Pair{
			Video:    filepath.Join(videoDir, name),
			Subtitle: srtPath,
			Output:   filepath.Join(outputDir, stem+suffix+".mkv"),
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Video < pairs[j].Video })
	sort.Strings(missing)
	return pairs, missing, nil
}

// subtitleIndex maps file stems to subtitle paths.
func subtitleIndex(dir string) (map[string]string, error) {
	paths, err := fileutil.ListSubtitleFiles(dir)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		index[strings.TrimSuffix(name, filepath.Ext(name))] = path
	}
	return index, nil
}
