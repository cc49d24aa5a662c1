package store

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asaidimu/go-maktaba/core/fulltext"
	"github.com/asaidimu/go-maktaba/core/query"
	"github.com/asaidimu/go-maktaba/core/schema"
)

// Reserved metadata keys attached to every stored document and stripped
// before results reach callers.
const (
	idField  = "$id"
	ordField = "$ord"
)

// Collection holds the documents of one logical dataset in insertion order.
// Stored documents are never mutated in place: every mutation swaps slices
// or replaces whole documents, so query snapshots stay valid without
// copying document maps.
type Collection struct {
	def    *schema.CollectionDefinition
	store  *Store
	logger *zap.Logger

	mu         sync.RWMutex
	docs       []schema.Document
	bySlug     map[string]int
	nextOrd    uint32
	index      *fulltext.Index
	indexDirty bool
	dropped    bool
}

func newCollection(def *schema.CollectionDefinition, store *Store) *Collection {
	return &Collection{
		def:    def,
		store:  store,
		logger: store.logger,
		docs:   make([]schema.Document, 0),
		bySlug: make(map[string]int),
	}
}

// Definition returns the collection's definition.
func (c *Collection) Definition() *schema.CollectionDefinition {
	return c.def
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.def.Name
}

// Len returns the current document count.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Insert adds a document, returning its generated id. The document is
// validated against the definition when the collection is typed, and its
// slug, when present, must be unique.
func (c *Collection) Insert(doc schema.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("cannot insert a nil document into %s", c.def.Name)
	}
	if ok, issues := schema.NewValidator(c.def).Validate(doc, false); !ok {
		return "", fmt.Errorf("document rejected by %s: %s", c.def.Name, formatIssues(issues))
	}

	c.mu.Lock()
	slugKey := c.def.Slug()
	if slug, ok := doc[slugKey].(string); ok {
		if _, exists := c.bySlug[slug]; exists {
			c.mu.Unlock()
			return "", fmt.Errorf("duplicate %s %q in collection %s", slugKey, slug, c.def.Name)
		}
	}
	id := c.insertLocked(doc)
	c.afterMutationLocked()
	c.mu.Unlock()

	c.emit(DocumentInsert, "insert", 1)
	return id, nil
}

// Upsert adds a document or, when one with the same slug exists, replaces
// it in place keeping its position, id, and ordinal.
func (c *Collection) Upsert(doc schema.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("cannot upsert a nil document into %s", c.def.Name)
	}
	if ok, issues := schema.NewValidator(c.def).Validate(doc, false); !ok {
		return "", fmt.Errorf("document rejected by %s: %s", c.def.Name, formatIssues(issues))
	}

	c.mu.Lock()
	var id string
	at, exists := -1, false
	if slug, ok := doc[c.def.Slug()].(string); ok {
		at, exists = c.bySlug[slug]
	}
	if exists {
		stored := doc.Clone()
		stored[idField] = c.docs[at][idField]
		stored[ordField] = c.docs[at][ordField]
		c.docs[at] = stored
		id = stored[idField].(string)
	} else {
		id = c.insertLocked(doc)
	}
	c.afterMutationLocked()
	c.mu.Unlock()

	c.emit(DocumentInsert, "upsert", 1)
	return id, nil
}

// RemoveBySlug deletes the document whose slug matches, reporting whether
// one was found.
func (c *Collection) RemoveBySlug(slug string) bool {
	c.mu.Lock()
	at, ok := c.bySlug[slug]
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.docs = slices.Delete(c.docs, at, at+1)
	c.rebuildSlugsLocked()
	c.afterMutationLocked()
	c.mu.Unlock()

	c.emit(DocumentRemove, "remove", 1)
	return true
}

// Replace swaps the entire document set atomically. All documents are
// staged and checked first; on any error the collection is left unchanged.
// Ids and ordinals are reassigned from zero.
func (c *Collection) Replace(docs []schema.Document) error {
	slugKey := c.def.Slug()
	staged := make([]schema.Document, 0, len(docs))
	stagedSlugs := make(map[string]int, len(docs))
	validator := schema.NewValidator(c.def)

	for i, doc := range docs {
		if doc == nil {
			return fmt.Errorf("document %d for %s is nil", i, c.def.Name)
		}
		if ok, issues := validator.Validate(doc, false); !ok {
			return fmt.Errorf("document %d rejected by %s: %s", i, c.def.Name, formatIssues(issues))
		}
		stored := doc.Clone()
		stored[idField] = uuid.New().String()
		stored[ordField] = uint32(i)
		if slug, ok := stored[slugKey].(string); ok {
			if _, dup := stagedSlugs[slug]; dup {
				return fmt.Errorf("duplicate %s %q in documents for %s", slugKey, slug, c.def.Name)
			}
			stagedSlugs[slug] = i
		}
		staged = append(staged, stored)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = staged
	c.bySlug = stagedSlugs
	c.nextOrd = uint32(len(staged))
	c.afterMutationLocked()
	return nil
}

// Query returns a builder over a snapshot of the current documents,
// configured with the collection's search fields and slug field.
func (c *Collection) Query() *query.QueryBuilder {
	c.mu.RLock()
	snapshot := slices.Clone(c.docs)
	c.mu.RUnlock()

	rs := &Resultset{
		coll:      c,
		docs:      snapshot,
		processor: c.store.processor,
		metrics:   c.store.metrics,
		logger:    c.logger,
	}
	return query.NewQueryBuilder(rs, c.def.Name, &query.BuilderOptions{
		FullTextSearchFields: c.def.SearchFields,
		SlugField:            c.def.Slug(),
		Logger:               c.logger,
	})
}

// searchIndex returns the collection's full-text index, rebuilding it when
// mutations have invalidated it.
func (c *Collection) searchIndex() (*fulltext.Index, error) {
	c.mu.RLock()
	if !c.indexDirty && c.index != nil {
		ix := c.index
		c.mu.RUnlock()
		return ix, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring the write lock.
	if !c.indexDirty && c.index != nil {
		return c.index, nil
	}

	entries := make([]fulltext.Entry, 0, len(c.docs))
	for _, doc := range c.docs {
		ord, ok := doc[ordField].(uint32)
		if !ok {
			continue
		}
		entries = append(entries, fulltext.Entry{ID: ord, Doc: doc})
	}
	ix, err := fulltext.Build(c.def.SearchFields, entries, c.store.analyzer, c.logger)
	if err != nil {
		return nil, fmt.Errorf("rebuilding index for %s: %w", c.def.Name, err)
	}
	c.index = ix
	c.indexDirty = false
	c.logger.Debug("Rebuilt full-text index",
		zap.String("collection", c.def.Name),
		zap.Int("documents", len(entries)))
	return ix, nil
}

func (c *Collection) insertLocked(doc schema.Document) string {
	stored := doc.Clone()
	id := uuid.New().String()
	stored[idField] = id
	stored[ordField] = c.nextOrd
	c.nextOrd++

	if slug, ok := stored[c.def.Slug()].(string); ok {
		c.bySlug[slug] = len(c.docs)
	}
	c.docs = append(c.docs, stored)
	return id
}

func (c *Collection) afterMutationLocked() {
	c.indexDirty = true
	c.store.metrics.SetDocuments(c.def.Name, len(c.docs))
}

func (c *Collection) rebuildSlugsLocked() {
	slugKey := c.def.Slug()
	c.bySlug = make(map[string]int, len(c.docs))
	for i, doc := range c.docs {
		if slug, ok := doc[slugKey].(string); ok {
			c.bySlug[slug] = i
		}
	}
}

func (c *Collection) markDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped = true
}

func (c *Collection) isDropped() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dropped
}

func (c *Collection) emit(eventType EventType, operation string, count int) {
	if c.store == nil {
		return
	}
	n := count
	c.store.emitEvent(newEvent(eventType, operation, c.def.Name, &n, nil, time.Time{}))
}

func formatIssues(issues []schema.Issue) string {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, fmt.Sprintf("%s (%s)", issue.Message, issue.Code))
	}
	return strings.Join(parts, "; ")
}
