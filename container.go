package gocfb

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aligator/gocfb/checkpoint"
	arc "github.com/hashicorp/golang-lru/arc/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Container is a parsed compound file. It is built once by Parse and not changed afterwards,
// so it is safe to resolve streams from several goroutines.
type Container struct {
	src      ByteSource
	header   Header
	geometry Geometry
	log      *zap.SugaredLogger

	fat     []uint32
	entries []DirectoryEntry
	root    int

	miniFAT    []uint32
	miniStream []byte
	miniLimit  uint32
	miniErr    error

	diagnostics []error
	cache       *arc.ARCCache[streamKey, []byte]
	concurrency int
}

type streamKey struct {
	start uint32
	size  uint64
	mini  bool
}

// Entry is a directory entry of a Container which can resolve its own content.
type Entry struct {
	DirectoryEntry
	container *Container
}

// Resolved is the result of resolving a single stream by ResolveAll.
type Resolved struct {
	Entry *Entry
	Data  []byte
	Err   error
}

// Parse reads the structure of a compound file. Any error in the header, the FAT or the directory
// aborts. A damaged MiniFAT or mini stream only makes the mini streams unreadable and is
// reported by Diagnostics.
func Parse(src ByteSource, opts ...Option) (*Container, error) {
	return parse(src, false, opts)
}

// ParseSkipChecks reads the structure of a compound file just like Parse but it skips the header
// validations which are not needed to read the file, and it keeps going with whatever could be read
// if the FAT, the directory or the MiniFAT is damaged. The problems are available by Diagnostics.
// Use with caution!
func ParseSkipChecks(src ByteSource, opts ...Option) (*Container, error) {
	return parse(src, true, opts)
}

func parse(src ByteSource, lenient bool, opts []Option) (*Container, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	header, err := ReadHeader(src, lenient)
	if err != nil {
		return nil, err
	}

	c := &Container{
		src:         src,
		header:      header,
		geometry:    header.Geometry(src.Size()),
		log:         o.logger.Sugar(),
		root:        -1,
		concurrency: o.concurrency,
	}

	c.log.Debugw("read compound file header",
		"version", header.MajorVersion,
		"sectorSize", c.geometry.SectorSize,
		"miniSectorSize", c.geometry.MiniSectorSize,
		"totalSectors", c.geometry.TotalSectors)

	// check records a structural problem. Only in lenient mode parsing goes on.
	check := func(err error) error {
		if err == nil {
			return nil
		}
		if !lenient {
			return err
		}
		c.log.Warnw("continuing with damaged structure", "error", err)
		c.diagnostics = append(c.diagnostics, err)
		return nil
	}

	c.fat, err = buildFAT(src, header, c.geometry)
	if err := check(err); err != nil {
		return nil, err
	}
	if fatSectors := uint32(len(c.fat)) / (c.geometry.SectorSize / 4); fatSectors != header.NumFATSectors {
		c.log.Warnw("number of FAT sectors differs from header", "header", header.NumFATSectors, "found", fatSectors)
	}

	data, err := readDirectory(src, header, c.geometry, c.fat)
	if err := check(err); err != nil {
		return nil, err
	}

	c.entries, err = parseDirectory(data, c.geometry)
	if err := check(err); err != nil {
		return nil, err
	}

	for i, e := range c.entries {
		if e.Type == TypeRoot {
			c.root = i
			break
		}
	}
	if c.root < 0 {
		if err := check(checkpoint.Wrap(errors.New("no root entry in directory"), ErrCorruptTable)); err != nil {
			return nil, err
		}
	}

	c.log.Debugw("read directory", "entries", len(c.entries), "fatEntries", len(c.fat))

	// A damaged mini stream only affects the streams stored in it, so even strict parsing continues.
	// readMini reports miniErr for each of them.
	if needsMiniStream(c.entries, c.geometry) {
		c.miniErr = c.loadMiniStream()
		if c.miniErr != nil {
			c.log.Warnw("continuing with damaged mini stream", "error", c.miniErr)
			c.diagnostics = append(c.diagnostics, c.miniErr)
		}
	}

	if o.cacheSize > 0 {
		c.cache, err = arc.NewARC[streamKey, []byte](o.cacheSize)
		if err != nil {
			return nil, checkpoint.From(err)
		}
	}

	return c, nil
}

// loadMiniStream builds the MiniFAT and materializes the stream of the root entry which holds all mini sectors.
// Whatever could be read is kept, even on error.
func (c *Container) loadMiniStream() error {
	if c.root < 0 {
		return checkpoint.Wrap(errors.New("mini stream needs a root entry"), ErrCorruptTable)
	}

	var err error
	c.miniFAT, err = buildMiniFAT(c.src, c.header, c.geometry, c.fat)

	var streamErr error
	c.miniStream, streamErr = c.readMain(c.entries[c.root])
	err = multierr.Append(err, streamErr)

	c.miniLimit = miniSectorLimit(c.miniFAT, c.miniStream, c.geometry)
	c.log.Debugw("read mini stream", "miniFATEntries", len(c.miniFAT), "miniStreamSize", len(c.miniStream))

	return err
}

// Header returns the header of the file.
func (c *Container) Header() Header {
	return c.header
}

// Geometry returns the sizes used to read the file.
func (c *Container) Geometry() Geometry {
	return c.geometry
}

// Diagnostics returns the problems parsing has continued after.
// Parse only continues after a damaged mini stream, ParseSkipChecks after any damaged structure.
func (c *Container) Diagnostics() []error {
	return append([]error(nil), c.diagnostics...)
}

// Err combines all Diagnostics into one error. It is nil if the file was read without problems.
func (c *Container) Err() error {
	return multierr.Combine(c.diagnostics...)
}

// Entries returns all used directory entries in the order of the directory stream.
func (c *Container) Entries() []DirectoryEntry {
	return append([]DirectoryEntry(nil), c.entries...)
}

// Root returns the root entry, if there is one.
func (c *Container) Root() (*Entry, bool) {
	if c.root < 0 {
		return nil, false
	}
	return &Entry{DirectoryEntry: c.entries[c.root], container: c}, true
}

// List returns all used directory entries including the root entry.
func (c *Container) List() []*Entry {
	result := make([]*Entry, len(c.entries))
	for i := range c.entries {
		result[i] = &Entry{DirectoryEntry: c.entries[i], container: c}
	}
	return result
}

// Lookup finds the first entry with exactly the given name.
// Names are compared case-sensitively as they are stored, including control characters like "\x05".
func (c *Container) Lookup(name string) (*Entry, bool) {
	for i := range c.entries {
		if c.entries[i].Name == name {
			return &Entry{DirectoryEntry: c.entries[i], container: c}, true
		}
	}
	return nil, false
}

// Open returns the content of the first entry with exactly the given name.
// May return ErrNotFound. If the stream is damaged, the bytes which could be read are returned
// together with the error.
func (c *Container) Open(name string) ([]byte, error) {
	entry, ok := c.Lookup(name)
	if !ok {
		return nil, checkpoint.Wrap(fmt.Errorf("%q", name), ErrNotFound)
	}
	return entry.Resolve()
}

// Resolve returns the content of an entry. Storages have no content.
// Streams smaller than the mini stream cutoff are read from the mini stream, all others and
// the root entry directly through the FAT. The result has exactly the size of the entry unless an
// error is returned, in which case the bytes read so far are returned.
func (c *Container) Resolve(e DirectoryEntry) ([]byte, error) {
	if e.Type != TypeStream && e.Type != TypeRoot || e.StreamSize == 0 {
		return []byte{}, nil
	}

	mini := e.Type != TypeRoot && e.StreamSize < uint64(c.geometry.MiniStreamCutoff)
	key := streamKey{start: e.StartingSector, size: e.StreamSize, mini: mini}

	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			return bytes.Clone(data), nil
		}
	}

	var data []byte
	var err error
	if mini {
		data, err = c.readMini(e)
	} else {
		data, err = c.readMain(e)
	}

	if err != nil {
		c.log.Warnw("could not resolve stream", "name", e.Name, "read", len(data), "size", e.StreamSize, "error", err)
		return data, err
	}

	if c.cache != nil {
		c.cache.Add(key, bytes.Clone(data))
	}
	return data, nil
}

// ResolveAll resolves all streams concurrently. The results are in directory order.
// Damaged streams are reported by Resolved.Err and do not stop the other streams,
// only canceling ctx does.
func (c *Container) ResolveAll(ctx context.Context) ([]Resolved, error) {
	var streams []*Entry
	for _, e := range c.List() {
		if e.Type == TypeStream {
			streams = append(streams, e)
		}
	}

	results := make([]Resolved, len(streams))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(c.concurrency)

	for i, e := range streams {
		i, e := i, e
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Resolved{Entry: e, Err: err}
				return err
			}

			data, err := e.Resolve()
			results[i] = Resolved{Entry: e, Data: data, Err: err}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, checkpoint.From(err)
	}
	return results, nil
}

// readMain reads a stream sector by sector through the FAT.
func (c *Container) readMain(e DirectoryEntry) ([]byte, error) {
	sectorSize := uint64(c.geometry.SectorSize)
	want := (e.StreamSize + sectorSize - 1) / sectorSize
	if want > uint64(c.geometry.TotalSectors) {
		want = uint64(c.geometry.TotalSectors)
	}

	chain, chainErr := walkChain(e.StartingSector, c.fat, c.geometry.TotalSectors, int(want))

	// Never trust the declared size for allocations.
	capacity := e.StreamSize
	if limit := uint64(len(chain)) * sectorSize; capacity > limit {
		capacity = limit
	}
	data := make([]byte, 0, capacity)

	remaining := e.StreamSize
	for _, sector := range chain {
		n := sectorSize
		if remaining < n {
			n = remaining
		}

		buf, err := readAt(c.src, c.geometry.SectorOffset(sector), int(n))
		data = append(data, buf...)
		remaining -= uint64(len(buf))
		if err != nil {
			return data, checkpoint.Wrapf(err, "could not read sector %d of %q", sector, e.Name)
		}
	}

	return data, c.checkComplete(e, chain, chainErr, data, false)
}

// readMini reads a stream mini sector by mini sector from the mini stream.
func (c *Container) readMini(e DirectoryEntry) ([]byte, error) {
	miniSize := uint64(c.geometry.MiniSectorSize)
	want := (e.StreamSize + miniSize - 1) / miniSize

	chain, chainErr := walkChain(e.StartingSector, c.miniFAT, c.miniLimit, int(want))
	if chainErr != nil && c.miniErr != nil {
		// The mini stream itself is damaged, report that as the reason.
		chainErr = checkpoint.Wrap(chainErr, c.miniErr)
	}

	capacity := e.StreamSize
	if limit := uint64(len(c.miniStream)); capacity > limit {
		capacity = limit
	}
	data := make([]byte, 0, capacity)

	remaining := e.StreamSize
	for _, id := range chain {
		n := miniSize
		if remaining < n {
			n = remaining
		}

		start := uint64(id) * miniSize
		end := start + n
		if end > uint64(len(c.miniStream)) {
			data = append(data, c.miniStream[start:]...)
			return data, checkpoint.Wrap(fmt.Errorf("mini sector %d of %q is outside of the mini stream", id, e.Name), ErrTruncated)
		}

		data = append(data, c.miniStream[start:end]...)
		remaining -= n
	}

	return data, c.checkComplete(e, chain, chainErr, data, true)
}

// checkComplete turns a broken or too short chain into an error.
func (c *Container) checkComplete(e DirectoryEntry, chain []uint32, chainErr error, data []byte, mini bool) error {
	var chainError *ChainError
	if errors.As(chainErr, &chainError) {
		chainError.Mini = mini
	}

	if chainErr != nil {
		return checkpoint.Wrapf(chainErr, "could not read %q", e.Name)
	}

	if uint64(len(data)) < e.StreamSize {
		at := e.StartingSector
		if len(chain) > 0 {
			at = chain[len(chain)-1]
		}
		return checkpoint.Wrap(&ChainError{
			Start:  e.StartingSector,
			At:     at,
			Next:   EndOfChain,
			Mini:   mini,
			Reason: fmt.Sprintf("chain ends after %d of %d bytes", len(data), e.StreamSize),
		}, fmt.Errorf("could not read %q", e.Name))
	}

	return nil
}

// Size returns the size of the stream.
func (e *Entry) Size() int64 {
	if e.StreamSize > uint64(1<<63-1) {
		return 1<<63 - 1
	}
	return int64(e.StreamSize)
}

// IsMini reports if the content is stored in the mini stream.
func (e *Entry) IsMini() bool {
	return e.Type == TypeStream && e.StreamSize > 0 && e.StreamSize < uint64(e.container.geometry.MiniStreamCutoff)
}

// Resolve returns the content of the entry, see Container.Resolve.
func (e *Entry) Resolve() ([]byte, error) {
	return e.container.Resolve(e.DirectoryEntry)
}
