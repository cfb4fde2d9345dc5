package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogFile represents an audit log file on disk.
type LogFile struct {
	Path      string
	Name      string
	Size      int64
	ModTime   time.Time
	NumEvents int
}

// ListLogs finds audit log files in dir, newest first.
func ListLogs(dir string) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading audit log directory: %w", err)
	}

	var files []LogFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), "-audit.jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, e.Name())
		n, _ := countLines(path) //nolint:errcheck
		files = append(files, LogFile{
			Path:      path,
			Name:      e.Name(),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			NumEvents: n,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck
	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// ReadEvents parses all events from an audit log file.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var events []Event
	scanner := bufio.NewScanner(f)
	// Reports can make for long event lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue // skip malformed lines
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return events, nil
}

// RenderTimeline writes a human-readable audit timeline to w.
//
//nolint:errcheck // display-only writes; errors are not actionable
func RenderTimeline(w io.Writer, events []Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w, " AUDIT TIMELINE")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	start := events[0].Timestamp
	for _, ev := range events {
		elapsed := ev.Timestamp.Sub(start)
		ts := formatDuration(elapsed)

		switch ev.Type {
		case EventServerStart:
			provider, _ := ev.Data["provider"].(string) //nolint:errcheck
			model, _ := ev.Data["model"].(string)       //nolint:errcheck
			fmt.Fprintf(w, "[%s] 🚀 Server started  provider=%s  model=%s\n", ts, provider, model)

		case EventResearchStarted:
			id, _ := ev.Data["session_id"].(string) //nolint:errcheck
			query, _ := ev.Data["query"].(string)   //nolint:errcheck
			status, _ := ev.Data["status"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ▶  Research started %s [%s]: %s\n", ts, id, status, query)

		case EventResultFetched:
			id, _ := ev.Data["session_id"].(string) //nolint:errcheck
			status, _ := ev.Data["status"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s]    Poll %s → %s\n", ts, id, status)

		case EventResearchCompleted:
			id, _ := ev.Data["session_id"].(string) //nolint:errcheck
			citations := jsonNumber(ev.Data["citations"])
			chars := jsonNumber(ev.Data["report_chars"])
			dur := jsonNumber(ev.Data["duration_ms"])
			fmt.Fprintf(w, "[%s] ✓  Completed %s  citations=%d  report=%d chars  (%dms)\n", ts, id, citations, chars, dur)

		case EventResearchFailed:
			id, _ := ev.Data["session_id"].(string)  //nolint:errcheck
			msg, _ := ev.Data["message"].(string)    //nolint:errcheck
			fmt.Fprintf(w, "[%s] ✗  Failed %s: %s\n", ts, id, msg)

		case EventConnectionTested:
			conn, _ := ev.Data["connection"].(string) //nolint:errcheck
			count := jsonNumber(ev.Data["model_count"])
			fmt.Fprintf(w, "[%s] ⚡ Connection %s  models=%d\n", ts, conn, count)

		case EventServerStop:
			sessions := jsonNumber(ev.Data["sessions"])
			fmt.Fprintf(w, "[%s] 🏁 Server stopped  sessions=%d\n", ts, sessions)

		default:
			fmt.Fprintf(w, "[%s] %s %v\n", ts, ev.Type, ev.Data)
		}
	}
	fmt.Fprintln(w)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%6dms", d.Milliseconds())
	}
	return fmt.Sprintf("%6.1fs", d.Seconds())
}

// jsonNumber extracts an int from a JSON-decoded value.
func jsonNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64() //nolint:errcheck
		return int(i)
	}
	return 0
}
