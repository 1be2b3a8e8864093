// Package manifest rewrites resource declarations in place. Edits operate
// on the yaml document tree so key order, comments, and unrelated content
// survive untouched, keeping diffs minimal.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// File is a parsed manifest: the original bytes plus the decoded document
// trees (a file may hold multiple YAML documents).
type File struct {
	Path string
	Docs []*yaml.Node
}

// Load reads and decodes every document in a YAML file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Decode(path, data)
}

// Decode parses manifest bytes without touching the filesystem.
func Decode(path string, data []byte) (*File, error) {
	var docs []*yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
		}
		docs = append(docs, &doc)
	}
	return &File{Path: path, Docs: docs}, nil
}

// Encode serializes the document trees back to YAML.
func (f *File) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, doc := range f.Docs {
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encoding manifest %s: %w", f.Path, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Update is one container's recommended values destined for a file.
type Update struct {
	Container models.ContainerID
	Values    models.ResourceValues
}

// Outcome is the per-container result of applying updates to a file.
type Outcome struct {
	Edit *models.ManifestEdit
	Err  error
}

// Mutator applies recommendations to manifest files. A manifest file is a
// single unit of work: all edits for one file happen under one lock in one
// read-modify-write pass, so concurrent callers cannot lose updates.
type Mutator struct {
	// Tolerance is the relative difference under which a recommended
	// value counts as already applied.
	Tolerance float64

	// WriteRetries bounds re-attempts for transient I/O failures.
	WriteRetries int
	RetryDelay   time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMutator uses a 2% tolerance and 3 write attempts.
func NewMutator() *Mutator {
	return &Mutator{
		Tolerance:    0.02,
		WriteRetries: 3,
		RetryDelay:   100 * time.Millisecond,
		locks:        make(map[string]*sync.Mutex),
	}
}

// ApplyFile applies all updates for one file. Per-container failures land
// in the matching Outcome; the file is written once, and only when at
// least one edit changed something. A file where every edit is a no-op is
// left byte-for-byte untouched.
func (m *Mutator) ApplyFile(path string, updates []Update) ([]Outcome, error) {
	lock := m.fileLock(path)
	lock.Lock()
	defer lock.Unlock()

	file, err := Load(path)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(updates))
	dirty := false
	for i, update := range updates {
		edit, err := m.apply(file, update)
		outcomes[i] = Outcome{Edit: edit, Err: err}
		if err == nil && !edit.NoOp {
			dirty = true
		}
	}

	if !dirty {
		return outcomes, nil
	}

	data, err := file.Encode()
	if err != nil {
		return outcomes, err
	}
	if err := m.write(path, data); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// apply mutates the document tree for one container.
func (m *Mutator) apply(file *File, update Update) (*models.ManifestEdit, error) {
	var resources *yaml.Node
	for _, doc := range file.Docs {
		if resources = locateResources(doc, update.Container); resources != nil {
			break
		}
	}
	if resources == nil {
		return nil, &ContainerNotFoundError{Container: update.Container, Path: file.Path}
	}

	current, err := readValues(resources)
	if err != nil {
		return nil, fmt.Errorf("reading current values for %s: %w", update.Container, err)
	}

	edit := &models.ManifestEdit{
		Path:      file.Path,
		Container: update.Container,
		Old:       current,
		New:       update.Values,
	}

	if m.withinTolerance(current, update.Values) {
		edit.NoOp = true
		edit.New = current
		return edit, nil
	}

	requests := ensureMapValue(resources, "requests")
	setScalar(requests, "cpu", FormatCPU(update.Values.CPURequest))
	setScalar(requests, "memory", FormatMemory(update.Values.MemoryRequest))

	limits := ensureMapValue(resources, "limits")
	setScalar(limits, "cpu", FormatCPU(update.Values.CPULimit))
	setScalar(limits, "memory", FormatMemory(update.Values.MemoryLimit))

	return edit, nil
}

// withinTolerance reports whether every declared value already matches the
// recommendation. A manifest that declares no values at all is never a
// no-op.
func (m *Mutator) withinTolerance(current, recommended models.ResourceValues) bool {
	if current.IsZero() {
		return false
	}
	return approxEqual(current.CPURequest, recommended.CPURequest, m.Tolerance) &&
		approxEqual(current.CPULimit, recommended.CPULimit, m.Tolerance) &&
		approxEqual(current.MemoryRequest, recommended.MemoryRequest, m.Tolerance) &&
		approxEqual(current.MemoryLimit, recommended.MemoryLimit, m.Tolerance)
}

func approxEqual(a, b, tolerance float64) bool {
	if a == b {
		return true
	}
	ref := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= tolerance*ref
}

func (m *Mutator) fileLock(path string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[path] = lock
	}
	return lock
}

// write persists the file, retrying transient I/O errors a bounded number
// of times. Permission and missing-path errors fail immediately.
func (m *Mutator) write(path string, data []byte) error {
	info, err := os.Stat(path)
	mode := os.FileMode(0o644)
	if err == nil {
		mode = info.Mode()
	}

	delay := m.RetryDelay
	var lastErr error
	for attempt := 0; attempt <= m.WriteRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}
		lastErr = os.WriteFile(path, data, mode)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return fmt.Errorf("writing manifest %s: %w", path, lastErr)
		}
	}
	return fmt.Errorf("writing manifest %s after %d attempts: %w", path, m.WriteRetries+1, lastErr)
}

func isTransient(err error) bool {
	if os.IsPermission(err) || os.IsNotExist(err) {
		return false
	}
	for _, errno := range []syscall.Errno{syscall.EAGAIN, syscall.EBUSY, syscall.EINTR, syscall.EIO, syscall.ENOSPC} {
		if errors.Is(err, errno) {
			return true
		}
	}
	// Unclassified write errors get the benefit of the doubt once the
	// fatal cases above are excluded.
	return true
}
