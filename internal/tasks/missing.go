package tasks

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/factor8/TagDeck/internal/models"
)

// CheckMissingOpts configures a file presence scan.
type CheckMissingOpts struct {
	NumWorkers int                               // Concurrent workers (default: 8)
	Stat       func(string) (os.FileInfo, error) // Defaults to os.Stat
}

// CheckMissingResult counts the outcome of a file presence scan.
type CheckMissingResult struct {
	Checked int            `json:"checked"`
	Missing int            `json:"missing"`
	Found   int            `json:"found"`
	Changed int            `json:"changed"`
	Failed  int            `json:"failed"`
	Tracks  []models.Track `json:"missing_tracks,omitempty"`
}

type fileCheck struct {
	track   models.Track
	missing bool
	err     error
}

// CheckMissing stats every track's file concurrently and records the missing flag where it changed.
func (e *Editor) CheckMissing(ctx context.Context, prog chan<- ProgressUpdate, opts CheckMissingOpts) (*CheckMissingResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 8
	}
	if opts.NumWorkers > 32 {
		opts.NumWorkers = 32
	}
	if opts.Stat == nil {
		opts.Stat = os.Stat
	}

	var tracks []*models.Track
	err := e.store.Do(func() error {
		var err error
		tracks, err = e.store.Tracks.List(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	jobs := make(chan models.Track, len(tracks))
	results := make(chan fileCheck, len(tracks))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go checkWorker(ctx, &wg, jobs, results, opts.Stat)
	}

	go func() {
		defer close(jobs)
		for _, t := range tracks {
			select {
			case <-ctx.Done():
				return
			case jobs <- *t:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &CheckMissingResult{}
	for res := range results {
		result.Checked++
		sendProgress(prog, checkFileUpdate(result.Checked, len(tracks), res.track, res.missing))

		if res.err != nil {
			e.logger.Warn("failed to check file", "path", res.track.FilePath, "error", res.err)
			result.Failed++
			continue
		}

		if res.missing {
			result.Missing++
		} else {
			result.Found++
		}

		if res.track.Missing == res.missing {
			if res.missing {
				result.Tracks = append(result.Tracks, res.track)
			}
			continue
		}
		if err := e.store.Do(func() error { return e.store.Tracks.SetMissing(res.track.ID, res.missing) }); err != nil {
			e.logger.Error("failed to record missing flag", "track", res.track.ID, "error", err)
			result.Failed++
			continue
		}
		result.Changed++
		if res.missing {
			res.track.Missing = true
			result.Tracks = append(result.Tracks, res.track)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func checkWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan models.Track, results chan<- fileCheck, stat func(string) (os.FileInfo, error)) {
	defer wg.Done()

	for t := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res := fileCheck{track: t}
		if t.FilePath == "" {
			res.missing = true
		} else if _, err := stat(t.FilePath); errors.Is(err, fs.ErrNotExist) {
			res.missing = true
		} else if err != nil {
			res.err = err
		}
		results <- res
	}
}
