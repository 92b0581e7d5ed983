package output

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tanq16/chunkr/internal/utils"
)

type chunkProgress struct {
	done  int64
	total int64
}

// Manager renders the progress of one download. Progress events are fed
// through Consume from a single goroutine; rendering runs on its own ticker.
type Manager struct {
	url       string
	output    string
	mutex     sync.RWMutex
	chunks    map[int]*chunkProgress
	status    string
	message   string
	err       error
	startTime time.Time
	endTime   time.Time

	out         io.Writer
	numLines    int
	live        bool
	displayTick time.Duration
	doneCh      chan struct{}
	displayWg   sync.WaitGroup
}

func NewManager(url, output string) *Manager {
	return &Manager{
		url:         url,
		output:      output,
		chunks:      make(map[int]*chunkProgress),
		status:      "pending",
		startTime:   time.Now(),
		out:         os.Stdout,
		displayTick: 300 * time.Millisecond,
		doneCh:      make(chan struct{}),
	}
}

func (m *Manager) SetOutput(w io.Writer) {
	m.out = w
}

// Add applies one progress event. Negative byte counts rewind a chunk
// after a restart.
func (m *Manager) Add(ev utils.ProgressEvent) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	cp, ok := m.chunks[ev.Chunk]
	if !ok {
		cp = &chunkProgress{}
		m.chunks[ev.Chunk] = cp
	}
	cp.done = max(0, cp.done+ev.Bytes)
	if ev.Total > 0 {
		cp.total = ev.Total
	}
	if m.status == "pending" {
		m.status = "active"
	}
}

// Consume applies events from ch until it is closed.
func (m *Manager) Consume(ch <-chan utils.ProgressEvent) {
	for ev := range ch {
		m.Add(ev)
	}
}

// Downloaded returns the bytes received and the expected total, which is
// zero while any chunk has an unknown size.
func (m *Manager) Downloaded() (int64, int64) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.totals()
}

func (m *Manager) totals() (int64, int64) {
	var done, total int64
	known := true
	for _, cp := range m.chunks {
		done += cp.done
		if cp.total <= 0 {
			known = false
		}
		total += cp.total
	}
	if !known {
		total = 0
	}
	return done, total
}

// SetMessage replaces the header text with a notice, shown in warning
// colors until the download finishes.
func (m *Manager) SetMessage(message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.message = message
}

func (m *Manager) Complete(message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if message == "" {
		message = fmt.Sprintf("Downloaded %s", m.output)
	}
	m.message = message
	m.status = "success"
	m.endTime = time.Now()
}

func (m *Manager) ReportError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.err = err
	m.status = "error"
	m.endTime = time.Now()
}

func (m *Manager) statusIndicator() string {
	switch m.status {
	case "success":
		return successStyle.Render(StyleSymbols["pass"])
	case "error":
		return errorStyle.Render(StyleSymbols["fail"])
	case "pending":
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["arrow"])
	}
}

func (m *Manager) elapsed() time.Duration {
	if !m.endTime.IsZero() {
		return m.endTime.Sub(m.startTime)
	}
	return time.Since(m.startTime)
}

// render returns the display lines: a header, the aggregate bar, and one
// bar per chunk when there is more than one, trimmed to maxLines.
func (m *Manager) render(termWidth, maxLines int) []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	elapsed := m.elapsed()
	message := m.message
	if message == "" {
		message = fmt.Sprintf("%s %s %s", m.url, StyleSymbols["arrow"], m.output)
	}
	var styledMessage string
	switch m.status {
	case "success":
		styledMessage = successStyle.Render(message)
	case "error":
		styledMessage = errorStyle.Render(message)
	default:
		if m.message != "" {
			styledMessage = warningStyle.Render(message)
		} else {
			styledMessage = pendingStyle.Render(message)
		}
	}
	lines := []string{fmt.Sprintf("%s%s %s %s", strings.Repeat(" ", 2), m.statusIndicator(),
		debugStyle.Render(elapsed.Round(time.Second).String()), styledMessage)}

	done, total := m.totals()
	width := barWidth(termWidth)
	indent := strings.Repeat(" ", 2+4)
	speed := FormatSpeed(done, elapsed.Seconds())
	if total > 0 {
		lines = append(lines, fmt.Sprintf("%s%s%s %s %s %s ETA %s", indent, PrintProgressBar(done, total, width),
			debugStyle.Render(FormatBytes(uint64(done))+"/"+FormatBytes(uint64(total))),
			StyleSymbols["bullet"], debugStyle.Render(speed), StyleSymbols["bullet"],
			debugStyle.Render(FormatETA(done, total, elapsed))))
	} else if done > 0 {
		lines = append(lines, fmt.Sprintf("%s%s %s %s", indent,
			debugStyle.Render(FormatBytes(uint64(done))), StyleSymbols["bullet"], debugStyle.Render(speed)))
	}

	if len(m.chunks) > 1 {
		indices := make([]int, 0, len(m.chunks))
		for i := range m.chunks {
			indices = append(indices, i)
		}
		slices.Sort(indices)
		for _, i := range indices {
			cp := m.chunks[i]
			lines = append(lines, fmt.Sprintf("%s%s%s", indent+"  ",
				PrintProgressBar(cp.done, cp.total, width/2),
				streamStyle.Render(fmt.Sprintf("part %d %s", i, FormatBytes(uint64(cp.done))))))
		}
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

func (m *Manager) updateDisplay() {
	termWidth, termHeight := getTerminalSize()
	lines := m.render(termWidth, termHeight-3)
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	for _, line := range lines {
		fmt.Fprintln(m.out, line)
	}
	m.numLines = len(lines)
}

// StartDisplay redraws the progress on a ticker until StopDisplay. It is a
// no-op when stdout is not a terminal.
func (m *Manager) StartDisplay() {
	if !isTerminal() {
		return
	}
	m.mutex.Lock()
	m.live = true
	m.mutex.Unlock()
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.updateDisplay()
				return
			}
		}
	}()
}

// Live reports whether the progress display is redrawing the terminal.
func (m *Manager) Live() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.live
}

func (m *Manager) StopDisplay() {
	close(m.doneCh)
	m.displayWg.Wait()
	m.ShowSummary()
}

func (m *Manager) ShowSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	done, _ := m.totals()
	elapsed := m.elapsed()
	fmt.Fprintln(m.out)
	switch m.status {
	case "success":
		fmt.Fprintln(m.out, strings.Repeat(" ", 2)+success2Style.Render(fmt.Sprintf("Completed %s (%s in %s, %s)",
			m.output, FormatBytes(uint64(done)), elapsed.Round(time.Second), FormatSpeed(done, elapsed.Seconds()))))
	case "error":
		fmt.Fprintln(m.out, strings.Repeat(" ", 2)+errorStyle.Bold(true).Render("Error:"))
		fmt.Fprintf(m.out, "%s%s\n", strings.Repeat(" ", 2+4), errorStyle.Render(fmt.Sprintf("%v", m.err)))
	default:
		fmt.Fprintln(m.out, strings.Repeat(" ", 2)+warningStyle.Render("Download did not finish"))
	}
	fmt.Fprintln(m.out)
}
