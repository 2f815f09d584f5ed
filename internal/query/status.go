package query

import (
	"fmt"
	"sort"
	"time"

	"github.com/logkeep/logkeep/internal/engine"
)

// StreamStatus is the metadata summary for one stream.
type StreamStatus struct {
	Stream     string
	Files      int
	SizeBytes  int64
	Compressed int
	Oldest     time.Time
	Newest     time.Time
}

// Report is the corpus-wide metadata summary. It is assembled from file
// metadata only; no segment content is read.
type Report struct {
	TotalFiles int
	TotalBytes int64
	Compressed int
	Oldest     time.Time
	Newest     time.Time
	Streams    []StreamStatus
}

// Status summarizes the on-disk corpus per stream and in total.
func (s *Service) Status() (Report, error) {
	files, err := engine.ScanFiles(s.dataDir)
	if err != nil {
		return Report{}, fmt.Errorf("scan corpus: %w", err)
	}

	perStream := map[string]*StreamStatus{}
	var rep Report
	for _, f := range files {
		stream := streamOf(f.Rel)
		st, ok := perStream[stream]
		if !ok {
			st = &StreamStatus{Stream: stream}
			perStream[stream] = st
		}

		st.Files++
		st.SizeBytes += f.Size
		rep.TotalFiles++
		rep.TotalBytes += f.Size
		if f.Compressed {
			st.Compressed++
			rep.Compressed++
		}
		if st.Oldest.IsZero() || f.ModTime.Before(st.Oldest) {
			st.Oldest = f.ModTime
		}
		if f.ModTime.After(st.Newest) {
			st.Newest = f.ModTime
		}
		if rep.Oldest.IsZero() || f.ModTime.Before(rep.Oldest) {
			rep.Oldest = f.ModTime
		}
		if f.ModTime.After(rep.Newest) {
			rep.Newest = f.ModTime
		}
	}

	for _, st := range perStream {
		rep.Streams = append(rep.Streams, *st)
	}
	sort.Slice(rep.Streams, func(i, j int) bool {
		return rep.Streams[i].Stream < rep.Streams[j].Stream
	})
	return rep, nil
}
