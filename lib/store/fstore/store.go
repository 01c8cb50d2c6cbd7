package fstore

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/slowstore/slowstore/lib/changelog"
	"github.com/slowstore/slowstore/lib/codec"
	"github.com/slowstore/slowstore/lib/logger"
	"github.com/slowstore/slowstore/lib/model"
	"github.com/slowstore/slowstore/lib/store"
	"github.com/slowstore/slowstore/lib/store/util"
)

var Logger = logger.GetLogger("store")

// docSuffix is the file extension of record documents
const docSuffix = ".json"

// openDirectories guards against two stores of the same process writing to
// one directory. This is an in-process convenience, not cross-process
// coordination: a second process sees no claim.
var openDirectories = xsync.NewMapOf[string, struct{}]()

// --------------------------------------------------------------------------
// Store Implementation
// --------------------------------------------------------------------------

// storeImpl implements the store.IStore interface backed by one document
// file per record in a single directory.
type storeImpl[E model.IModel] struct {
	directory string
	opts      Options[E]
	records   map[string]*recordImpl[E]
	keys      []string // insertion order of the records
	hooks     []store.ChangeHook
	histogram *util.SizeHistogram
	closed    bool
}

// New creates a file store for the given directory. The directory does not
// have to exist yet; it is created on the first write. Construction
// validates the entity schema against the reserved document keys and claims
// the directory for this process (a second store on the same directory
// fails with RetCDirBusy until the first one is closed).
func New[E model.IModel](directory string, factory model.Factory[E], opts *Options[E]) (store.IStore[E], error) {
	if directory == "" {
		return nil, store.NewError(store.RetCInvalidOperation, "store directory must not be empty")
	}
	if factory == nil {
		return nil, store.NewError(store.RetCInvalidOperation, "entity factory must not be nil")
	}

	// Set default options if none are provided
	if opts == nil {
		opts = DefaultOptions[E]()
	}
	options := *opts
	if options.Codec == nil {
		options.Codec = codec.NewJSONCodec(factory)
	}

	// The schema of the entity type is validated once here. Schema-less
	// entities report no fields yet; for them the codec re-checks on every
	// encode.
	if err := codec.CheckFieldNames(factory().FieldNames()); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(directory)
	if err != nil {
		return nil, store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("resolve directory %q: %v", directory, err))
	}

	if _, loaded := openDirectories.LoadOrStore(abs, struct{}{}); loaded {
		return nil, store.NewError(store.RetCDirBusy,
			fmt.Sprintf("directory %q is already open in this process", abs))
	}

	return &storeImpl[E]{
		directory: abs,
		opts:      options,
		records:   make(map[string]*recordImpl[E]),
		histogram: util.NewSizeHistogram(),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods: Loading / Persistence (docu see store.IStore)
// --------------------------------------------------------------------------

func (s *storeImpl[E]) Load() error {
	info, err := os.Stat(s.directory)
	if err != nil {
		if os.IsNotExist(err) {
			return store.NewError(store.RetCDirNotFound,
				fmt.Sprintf("store directory %q does not exist (it is created on the first write)", s.directory))
		}
		return store.NewError(store.RetCPersistence,
			fmt.Sprintf("stat %q: %v", s.directory, err))
	}
	if !info.IsDir() {
		return store.NewError(store.RetCDirNotFound,
			fmt.Sprintf("%q is not a directory", s.directory))
	}

	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		return store.NewError(store.RetCPersistence,
			fmt.Sprintf("read directory %q: %v", s.directory, err))
	}

	var errs []error
	loaded := 0
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), docSuffix) {
			continue
		}

		path := filepath.Join(s.directory, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			Logger.Errorf("Failed to read document %s: %v", path, err)
			metricLoadErrors.Inc()
			errs = append(errs, store.NewError(store.RetCPersistence,
				fmt.Sprintf("read %q: %v", path, err)))
			continue
		}

		// One broken document must not take the whole directory down
		key, entity, log, err := s.opts.Codec.Decode(data)
		if err != nil {
			Logger.Errorf("Failed to decode document %s: %v", path, err)
			metricLoadErrors.Inc()
			errs = append(errs, err)
			continue
		}

		if !s.opts.LoadHistory {
			log = changelog.New(key)
		}

		if rec, ok := s.records[key]; ok {
			// Reloading replaces the in-memory state of the record
			rec.entity = entity
			rec.log = log
			rec.dirty = false
			rec.removed = false
		} else {
			s.insert(&recordImpl[E]{
				key:    key,
				entity: entity,
				log:    log,
				store:  s,
			})
		}

		s.histogram.AddSample(len(data))
		metricRecordsLoaded.Inc()
		loaded++
	}

	Logger.Infof("Loaded %d records from %s", loaded, s.directory)
	return errors.Join(errs...)
}

func (s *storeImpl[E]) Commit(key string) error {
	rec, ok := s.records[key]
	if !ok {
		return store.NewError(store.RetCKeyNotFound,
			fmt.Sprintf("no record with key %q", key))
	}
	return s.persist(rec)
}

func (s *storeImpl[E]) CommitAll() error {
	var errs []error
	flushed := 0
	for _, key := range s.keys {
		rec := s.records[key]
		if !rec.dirty {
			continue
		}
		if err := s.persist(rec); err != nil {
			errs = append(errs, err)
			continue
		}
		flushed++
	}
	if flushed > 0 {
		Logger.Debugf("Flushed %d dirty records to %s", flushed, s.directory)
	}
	return errors.Join(errs...)
}

func (s *storeImpl[E]) Close() error {
	if s.closed {
		return nil
	}

	var err error
	if s.opts.SaveOnClose {
		err = s.CommitAll()
	}

	openDirectories.Delete(s.directory)
	s.closed = true
	return err
}

// --------------------------------------------------------------------------
// Interface Methods: Write Operations (docu see store.IStore)
// --------------------------------------------------------------------------

func (s *storeImpl[E]) Upsert(key string, entity E) (store.IRecord[E], error) {
	if key == "" {
		return nil, store.NewError(store.RetCInvalidOperation, "record key must not be empty")
	}

	if rec, ok := s.records[key]; ok {
		// Merge: every differing field of the incoming entity becomes a
		// tracked change on the existing record
		var changes []changelog.Change
		for _, field := range entity.FieldNames() {
			value, err := entity.GetField(field)
			if err != nil {
				return nil, store.NewError(store.RetCInternalError,
					fmt.Sprintf("read field %q of incoming entity: %v", field, err))
			}
			change, changed, err := rec.setField(field, value)
			if err != nil {
				return nil, err
			}
			if changed {
				changes = append(changes, change)
			}
		}

		if len(changes) == 0 {
			return rec, nil
		}

		s.notify(store.ChangeEvent{Kind: store.ChangeKindUpdate, Key: key, Changes: changes})
		if s.opts.SaveOnChange {
			// On failure the record handle is still valid, just dirty
			return rec, s.persist(rec)
		}
		return rec, nil
	}

	rec := &recordImpl[E]{
		key:    key,
		entity: entity,
		log:    changelog.New(key),
		dirty:  true,
		store:  s,
	}
	s.insert(rec)

	s.notify(store.ChangeEvent{Kind: store.ChangeKindAdd, Key: key})
	if s.opts.SaveOnChange {
		return rec, s.persist(rec)
	}
	return rec, nil
}

func (s *storeImpl[E]) Add(entity E) (store.IRecord[E], error) {
	key, err := s.keyFor(entity)
	if err != nil {
		return nil, err
	}
	return s.Upsert(key, entity)
}

func (s *storeImpl[E]) Create(entity E) (store.IRecord[E], error) {
	key, err := s.keyFor(entity)
	if err != nil {
		return nil, err
	}
	if _, ok := s.records[key]; ok {
		return nil, store.NewError(store.RetCDuplicateKey,
			fmt.Sprintf("a record with key %q already exists", key))
	}
	return s.Upsert(key, entity)
}

func (s *storeImpl[E]) AddRange(entities ...E) ([]store.IRecord[E], error) {
	// Per-record saves are deferred to one flush at the end
	saveOnChange := s.opts.SaveOnChange
	s.opts.SaveOnChange = false
	defer func() { s.opts.SaveOnChange = saveOnChange }()

	recs := make([]store.IRecord[E], 0, len(entities))
	var errs []error
	for _, entity := range entities {
		rec, err := s.Add(entity)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recs = append(recs, rec)
	}

	if saveOnChange {
		for _, rec := range recs {
			impl := rec.(*recordImpl[E])
			if !impl.dirty {
				continue
			}
			if err := s.persist(impl); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return recs, errors.Join(errs...)
}

func (s *storeImpl[E]) Update(filter func(E) bool, update func(rec store.IRecord[E]) error) (int, error) {
	if filter == nil || update == nil {
		return 0, store.NewError(store.RetCInvalidOperation, "filter and update function must not be nil")
	}

	updated := 0
	var errs []error
	// The update function may delete records, so iterate over a snapshot
	for _, key := range slices.Clone(s.keys) {
		rec, ok := s.records[key]
		if !ok || !filter(rec.entity) {
			continue
		}
		updated++
		if err := update(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return updated, errors.Join(errs...)
}

func (s *storeImpl[E]) Delete(key string) error {
	rec, ok := s.records[key]
	if !ok {
		return store.NewError(store.RetCKeyNotFound,
			fmt.Sprintf("no record with key %q", key))
	}

	// A record that was never persisted has no document; that is fine
	path := s.documentPath(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return store.NewError(store.RetCPersistence,
			fmt.Sprintf("remove %q: %v", path, err))
	}

	s.remove(key)
	rec.removed = true
	metricDeletes.Inc()

	s.notify(store.ChangeEvent{Kind: store.ChangeKindRemove, Key: key})
	return nil
}

func (s *storeImpl[E]) Clear() error {
	var errs []error
	for _, key := range slices.Clone(s.keys) {
		if err := s.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Interface Methods: Read Operations (docu see store.IStore)
// --------------------------------------------------------------------------

func (s *storeImpl[E]) Get(key string) (rec store.IRecord[E], loaded bool, err error) {
	r, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	return r, true, nil
}

func (s *storeImpl[E]) Contains(key string) bool {
	_, ok := s.records[key]
	return ok
}

func (s *storeImpl[E]) Len() int {
	return len(s.records)
}

func (s *storeImpl[E]) Keys() []string {
	return slices.Clone(s.keys)
}

func (s *storeImpl[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, key := range s.keys {
			rec, ok := s.records[key]
			if !ok {
				continue
			}
			if !yield(rec.entity) {
				return
			}
		}
	}
}

func (s *storeImpl[E]) Filter(pred func(E) bool) iter.Seq[E] {
	return func(yield func(E) bool) {
		// A nil predicate matches nothing, like Update rejects nil functions
		if pred == nil {
			return
		}
		for _, key := range s.keys {
			rec, ok := s.records[key]
			if !ok || !pred(rec.entity) {
				continue
			}
			if !yield(rec.entity) {
				return
			}
		}
	}
}

func (s *storeImpl[E]) First(pred func(E) bool) (E, bool) {
	var zero E
	if pred == nil {
		return zero, false
	}
	for _, key := range s.keys {
		if rec, ok := s.records[key]; ok && pred(rec.entity) {
			return rec.entity, true
		}
	}
	return zero, false
}

func (s *storeImpl[E]) Records() iter.Seq2[string, store.IRecord[E]] {
	return func(yield func(string, store.IRecord[E]) bool) {
		for _, key := range s.keys {
			rec, ok := s.records[key]
			if !ok {
				continue
			}
			if !yield(key, rec) {
				return
			}
		}
	}
}

// --------------------------------------------------------------------------
// Interface Methods: Observers / Metadata (docu see store.IStore)
// --------------------------------------------------------------------------

func (s *storeImpl[E]) AddChangeHook(hook store.ChangeHook) {
	if hook == nil {
		return
	}
	s.hooks = append(s.hooks, hook)
}

func (s *storeImpl[E]) ClearChangeHooks() {
	s.hooks = nil
}

func (s *storeImpl[E]) GetInfo() (store.StoreInfo, error) {
	info := store.StoreInfo{
		Directory:   s.directory,
		RecordCount: len(s.records),
	}

	for _, rec := range s.records {
		if rec.dirty {
			info.DirtyCount++
		}
		info.ChangeCount += rec.log.Cursor()
	}

	// Actual document sizes, if the directory exists already
	var sizes []float64
	if dirEntries, err := os.ReadDir(s.directory); err == nil {
		for _, entry := range dirEntries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), docSuffix) {
				continue
			}
			if fi, err := entry.Info(); err == nil {
				info.SizeBytes += uint64(fi.Size())
				sizes = append(sizes, float64(fi.Size()))
			}
		}
	}

	info.Metadata = map[string]string{
		"implementation":  "fstore",
		"documents":       strconv.Itoa(len(sizes)),
		"written_samples": strconv.FormatInt(s.histogram.GetCount(), 10),
		"avg_doc_size":    fmt.Sprintf("%d bytes", s.histogram.AverageSize()),
		"median_doc_size": fmt.Sprintf("%d bytes (estimate)", s.histogram.MedianEstimate()),
		"p95_doc_size":    fmt.Sprintf("%d bytes (estimate)", s.histogram.GetPercentileEstimate(95)),
	}

	// Exact figures from the directory walk, unlike the histogram estimates
	if len(sizes) > 0 {
		sizeStats := util.NewStats(sizes)
		info.Metadata["min_doc_size"] = fmt.Sprintf("%d bytes", int64(sizeStats.Min))
		info.Metadata["max_doc_size"] = fmt.Sprintf("%d bytes", int64(sizeStats.Max))
		info.Metadata["stddev_doc_size"] = fmt.Sprintf("%.1f bytes", sizeStats.StdDeviation)
	}
	return info, nil
}

func (s *storeImpl[E]) Directory() string {
	return s.directory
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

// insert registers a record and appends its key to the insertion order
func (s *storeImpl[E]) insert(rec *recordImpl[E]) {
	s.records[rec.key] = rec
	s.keys = append(s.keys, rec.key)
}

// remove forgets a record and its place in the insertion order
func (s *storeImpl[E]) remove(key string) {
	delete(s.records, key)
	if i := slices.Index(s.keys, key); i >= 0 {
		s.keys = slices.Delete(s.keys, i, i+1)
	}
}

// keyFor derives the storage key for an entity: the configured key selector
// wins, otherwise a string-convertible "id" field is used
func (s *storeImpl[E]) keyFor(entity E) (string, error) {
	if s.opts.KeySelector != nil {
		if key := s.opts.KeySelector(entity); key != "" {
			return key, nil
		}
		return "", store.NewError(store.RetCNoKey, "key selector returned an empty key")
	}

	if value, err := entity.GetField("id"); err == nil && value != nil {
		if key := fmt.Sprintf("%v", value); key != "" {
			return key, nil
		}
	}
	return "", store.NewError(store.RetCNoKey,
		"no key selector configured and the entity has no usable id field")
}

// notify runs all registered change hooks synchronously
func (s *storeImpl[E]) notify(event store.ChangeEvent) {
	if len(event.Changes) > 0 {
		metricChanges.Add(len(event.Changes))
	}
	for _, hook := range s.hooks {
		hook(event)
	}
}

// persist writes one record's document, dirty or not. On success the record
// is clean and its log watermark moves to the cursor.
func (s *storeImpl[E]) persist(r *recordImpl[E]) error {
	start := time.Now()

	var log *changelog.ChangeLog
	if s.opts.PersistHistory {
		log = r.log
	}

	data, err := s.opts.Codec.Encode(r.key, r.entity, log)
	if err != nil {
		metricCommitErrors.Inc()
		return err
	}

	if err := s.writeDocument(s.documentPath(r.key), data); err != nil {
		Logger.Errorf("Failed to persist record %q: %v", r.key, err)
		metricCommitErrors.Inc()
		return err
	}

	r.log.MarkSaved()
	r.dirty = false
	s.histogram.AddSample(len(data))
	metricCommits.Inc()
	metricCommitDuration.UpdateDuration(start)
	return nil
}

// writeDocument writes data atomically from the caller's perspective: into a
// temp file in the target directory first, then renamed over the document.
// Readers never observe a half-written document.
func (s *storeImpl[E]) writeDocument(path string, data []byte) error {
	// The store directory is created lazily on the first write
	if err := os.MkdirAll(s.directory, 0o755); err != nil {
		return store.NewError(store.RetCPersistence,
			fmt.Sprintf("create directory %q: %v", s.directory, err))
	}

	tmp, err := os.CreateTemp(s.directory, ".tmp-*")
	if err != nil {
		return store.NewError(store.RetCPersistence,
			fmt.Sprintf("create temp file in %q: %v", s.directory, err))
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return store.NewError(store.RetCPersistence,
			fmt.Sprintf("write %q: %v", tmpPath, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return store.NewError(store.RetCPersistence,
			fmt.Sprintf("close %q: %v", tmpPath, err))
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return store.NewError(store.RetCPersistence,
			fmt.Sprintf("rename %q to %q: %v", tmpPath, path, err))
	}
	return nil
}

// documentPath returns the document file path for a record key
func (s *storeImpl[E]) documentPath(key string) string {
	return filepath.Join(s.directory, SanitizeKey(key)+docSuffix)
}

// fileNameReplacer maps characters that are unsafe or awkward in file names
var fileNameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", " ", "_", ".", "_",
	"!", "_", "?", "_", "&", "_", ";", "_", "|", "_",
)

// SanitizeKey converts a record key into the file name stem of its document.
// Unsafe characters become underscores and the result is lowercased; the
// in-memory key keeps its original form (documents carry it verbatim).
// Distinct keys can map to the same file name, e.g. "a/b" and "a_b" - such
// keys must not be mixed within one store.
func SanitizeKey(key string) string {
	return strings.ToLower(fileNameReplacer.Replace(key))
}
