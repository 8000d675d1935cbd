package posts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-freeze/internal/frontmatter"
	"github.com/goliatone/go-freeze/internal/normalize"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

type logEntry struct {
	level  string
	msg    string
	fields map[string]any
}

type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	fields  map[string]any
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}, fields: map[string]any{}}
}

func (l *recordingLogger) record(level, msg string, args ...any) {
	fields := map[string]any{}
	for k, v := range l.fields {
		fields[k] = v
	}
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	l.mu.Lock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, fields: fields})
	l.mu.Unlock()
}

func (l *recordingLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *recordingLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	merged := map[string]any{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{mu: l.mu, entries: l.entries, fields: merged}
}

func (l *recordingLogger) WithContext(context.Context) interfaces.Logger { return l }

func (l *recordingLogger) find(msg string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, entry := range *l.entries {
		if entry.msg == msg {
			out = append(out, entry)
		}
	}
	return out
}

type stubMarkdown struct {
	calls int
}

func (s *stubMarkdown) Render(markdown []byte) (*interfaces.RenderedMarkdown, error) {
	s.calls++
	return &interfaces.RenderedMarkdown{
		HTML: []byte("<p>" + strings.TrimSpace(string(markdown)) + "</p>"),
		TOC:  []interfaces.Heading{{Level: 2, ID: "intro", Text: "Intro"}},
	}, nil
}

var fixedNow = func() time.Time { return time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC) }

func filenameBuilder() *Builder {
	return NewBuilder(BuilderConfig{
		Collection:   "news",
		RoutePrefix:  "news",
		SlugStrategy: normalize.SlugFilename,
		Now:          fixedNow,
	})
}

func threePostFS() fstest.MapFS {
	return fstest.MapFS{
		"a-january.md": {Data: []byte("---\ntitle: January\ndate: 2024-01-01\nauthor: Jane Doe\n---\nJanuary body.\n")},
		"b-march.md":   {Data: []byte("---\ntitle: March\ndate: 2024-03-01\nauthor: Jane Doe\n---\nMarch body.\n")},
		"c-someday.md": {Data: []byte("---\ntitle: Someday\ndate: not a date\n---\nUndated body.\n")},
	}
}

func TestRepositoryOrdersDatedBeforeUndated(t *testing.T) {
	repo := NewRepository("news", NewFSSource(threePostFS(), SourceOptions{}), filenameBuilder())

	entries, err := repo.Index(context.Background(), false)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}

	var got []string
	for _, entry := range entries {
		got = append(got, entry.DateDisplay)
	}
	want := []string{"1 Mar 2024", "1 Jan 2024", ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order: got %q want %q", got, want)
	}
	if entries[0].URL != "/news/b-march/" {
		t.Fatalf("unexpected url %q", entries[0].URL)
	}
	if entries[0].AuthorInitials != "JD" || entries[2].AuthorInitials != "NA" {
		t.Fatalf("unexpected initials %q %q", entries[0].AuthorInitials, entries[2].AuthorInitials)
	}
}

func TestRepositoryUndatedKeepScanOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"z-undated.md": {Data: []byte("Plain body\n")},
		"a-undated.md": {Data: []byte("Plain body\n")},
		"m-dated.md":   {Data: []byte("---\ndate: 01/02/2023\n---\nBody\n")},
	}
	repo := NewRepository("news", NewFSSource(fsys, SourceOptions{}), filenameBuilder())

	snapshot, err := repo.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var slugs []string
	for _, record := range snapshot.Records() {
		slugs = append(slugs, record.Slug)
	}
	want := []string{"m-dated", "a-undated", "z-undated"}
	if !reflect.DeepEqual(slugs, want) {
		t.Fatalf("unexpected order %v want %v", slugs, want)
	}
}

func TestRepositoryLoadIsReferenceStable(t *testing.T) {
	repo := NewRepository("news", NewFSSource(threePostFS(), SourceOptions{}), filenameBuilder())
	ctx := context.Background()

	first, err := repo.Load(ctx, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := repo.Load(ctx, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached snapshot to be returned")
	}

	reloaded, err := repo.Reload(ctx)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if reloaded == first {
		t.Fatal("expected a forced load to rebuild the snapshot")
	}
	if !reflect.DeepEqual(BuildIndex(first), BuildIndex(reloaded)) {
		t.Fatal("expected identical contents after reload")
	}

	repo.Invalidate()
	afterInvalidate, err := repo.Load(ctx, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if afterInvalidate == reloaded {
		t.Fatal("expected Invalidate to drop the cache")
	}
}

func TestRepositorySeesNewFilesOnlyAfterReload(t *testing.T) {
	fsys := threePostFS()
	repo := NewRepository("news", NewFSSource(fsys, SourceOptions{}), filenameBuilder())
	ctx := context.Background()

	if _, err := repo.Load(ctx, false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	fsys["d-new.md"] = &fstest.MapFile{Data: []byte("---\ndate: 2025-01-01\n---\nNew\n")}

	cached, _ := repo.Load(ctx, false)
	if cached.Len() != 3 {
		t.Fatalf("expected cached snapshot to ignore new file, got %d records", cached.Len())
	}
	fresh, _ := repo.Reload(ctx)
	if fresh.Len() != 4 || fresh.At(0).Slug != "d-new" {
		t.Fatalf("expected reload to pick up new file first, got %d", fresh.Len())
	}
}

func TestRepositorySkipsBrokenFiles(t *testing.T) {
	fsys := threePostFS()
	fsys["broken.md"] = &fstest.MapFile{Data: []byte("---\n- just\n- a list\n---\nBody\n")}
	logger := newRecordingLogger()

	repo := NewRepository("news", NewFSSource(fsys, SourceOptions{}), filenameBuilder(), WithLogger(logger))
	snapshot, err := repo.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("expected load to succeed despite a broken file: %v", err)
	}
	if snapshot.Len() != 3 {
		t.Fatalf("expected broken file to be skipped, got %d records", snapshot.Len())
	}
	if got := snapshot.Skipped(); !reflect.DeepEqual(got, []string{"broken.md"}) {
		t.Fatalf("unexpected skipped list %v", got)
	}

	warnings := logger.find("posts.file.skipped")
	if len(warnings) != 1 {
		t.Fatalf("expected one skip warning, got %d", len(warnings))
	}
	if warnings[0].fields["path"] != "broken.md" {
		t.Fatalf("expected skip warning to name the file, got %v", warnings[0].fields)
	}
}

func TestRepositoryStrictModeSkipsFilesWithoutFrontMatter(t *testing.T) {
	fsys := threePostFS()
	fsys["plain.md"] = &fstest.MapFile{Data: []byte("No metadata here.\n")}

	builder := NewBuilder(BuilderConfig{
		Collection:   "news",
		RoutePrefix:  "/news/",
		ParseMode:    frontmatter.ModeStrict,
		SlugStrategy: normalize.SlugFilename,
	})
	repo := NewRepository("news", NewFSSource(fsys, SourceOptions{}), builder)

	snapshot, err := repo.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, _, ok := snapshot.Lookup("plain"); ok {
		t.Fatal("expected strict mode to skip the file without front matter")
	}
	if snapshot.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", snapshot.Len())
	}
}

func TestRepositorySuffixesCollidingSlugs(t *testing.T) {
	fsys := fstest.MapFS{
		"first.md":  {Data: []byte("---\ndate: 2024-03-01\nauthor: Ada Lovelace\n---\nOne\n")},
		"second.md": {Data: []byte("---\ndate: 2024-03-01\nauthor: Alan Lee\n---\nTwo\n")},
		"third.md":  {Data: []byte("---\ndate: 2024-03-01\nauthor: Al Lo\n---\nThree\n")},
	}
	builder := NewBuilder(BuilderConfig{Collection: "news", RoutePrefix: "news"})
	logger := newRecordingLogger()
	repo := NewRepository("news", NewFSSource(fsys, SourceOptions{}), builder, WithLogger(logger))

	snapshot, err := repo.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var slugs, urls, titles []string
	for _, record := range snapshot.Records() {
		slugs = append(slugs, record.Slug)
		urls = append(urls, record.URL)
		titles = append(titles, record.Title)
	}
	wantSlugs := []string{"01-03-2024-AL", "01-03-2024-AL-2", "01-03-2024-AL-3"}
	if !reflect.DeepEqual(slugs, wantSlugs) {
		t.Fatalf("unexpected slugs %v", slugs)
	}
	if urls[1] != "/news/01-03-2024-AL-2/" {
		t.Fatalf("unexpected url %q", urls[1])
	}
	if titles[1] != normalize.TitleFromSlug("01-03-2024-AL-2") {
		t.Fatalf("expected slug-derived title to follow the new slug, got %q", titles[1])
	}
	if got := len(logger.find("posts.slug.collision")); got != 2 {
		t.Fatalf("expected two collision warnings, got %d", got)
	}
}

func TestRepositoryOverwritePolicyLastWins(t *testing.T) {
	fsys := fstest.MapFS{
		"first.md":  {Data: []byte("---\ntitle: First\ndate: 2024-03-01\nauthor: Ada Lovelace\n---\nOne\n")},
		"second.md": {Data: []byte("---\ntitle: Second\ndate: 2024-03-01\nauthor: Alan Lee\n---\nTwo\n")},
	}
	builder := NewBuilder(BuilderConfig{Collection: "news", RoutePrefix: "news"})
	repo := NewRepository("news", NewFSSource(fsys, SourceOptions{}), builder, WithCollisionPolicy(CollisionOverwrite))

	snapshot, err := repo.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snapshot.Len() != 2 {
		t.Fatalf("expected both records to be kept, got %d", snapshot.Len())
	}
	record, _, ok := snapshot.Lookup("01-03-2024-AL")
	if !ok || record.Title != "Second" {
		t.Fatalf("expected last record to win the lookup, got %+v", record)
	}
}

func TestDirSourceMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "news")
	repo := NewRepository("news", NewDirSource(dir, SourceOptions{}), filenameBuilder())

	if _, err := repo.Load(context.Background(), false); !errors.Is(err, ErrContentDirMissing) {
		t.Fatalf("expected ErrContentDirMissing, got %v", err)
	}
}

func TestRepositoryDirReportsOnDiskSource(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "news")
	if got := NewRepository("news", NewDirSource(dir, SourceOptions{}), filenameBuilder()).Dir(); got != dir {
		t.Fatalf("expected %s, got %q", dir, got)
	}
	if got := NewRepository("news", NewFSSource(fstest.MapFS{}, SourceOptions{}), filenameBuilder()).Dir(); got != "" {
		t.Fatalf("expected no directory for an fs source, got %q", got)
	}
}

func TestDirSourceAutoCreate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "content", "news")
	repo := NewRepository("news", NewDirSource(dir, SourceOptions{AutoCreate: true}), filenameBuilder())

	snapshot, err := repo.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snapshot.Len() != 0 {
		t.Fatalf("expected empty snapshot, got %d", snapshot.Len())
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory to be created: %v", err)
	}
}

func TestSourceListingFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"b.md":            {Data: []byte("b")},
		"A.MD":            {Data: []byte("a")},
		"_Template.md":    {Data: []byte("template")},
		"notes.txt":       {Data: []byte("txt")},
		".hidden.md":      {Data: []byte("hidden")},
		"nested/deep.md":  {Data: []byte("deep")},
		"nested/skip.txt": {Data: []byte("skip")},
	}
	ctx := context.Background()

	flat, err := NewFSSource(fsys, SourceOptions{}).List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := paths(flat); !reflect.DeepEqual(got, []string{"A.MD", "b.md"}) {
		t.Fatalf("unexpected flat listing %v", got)
	}

	recursive, err := NewFSSource(fsys, SourceOptions{Recursive: true}).List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := paths(recursive); !reflect.DeepEqual(got, []string{"A.MD", "b.md", "nested/deep.md"}) {
		t.Fatalf("unexpected recursive listing %v", got)
	}
}

func TestDirSourceReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	content := "---\ntitle: On disk\ndate: 2024-05-05\n---\nHello from disk.\n"
	if err := os.WriteFile(filepath.Join(dir, "disk.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	repo := NewRepository("news", NewDirSource(dir, SourceOptions{}), filenameBuilder())

	snapshot, err := repo.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	record, _, ok := snapshot.Lookup("disk")
	if !ok {
		t.Fatal("expected record for disk.md")
	}
	if record.Title != "On disk" || record.ModTime.IsZero() {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestBuilderNormalizesRecognizedKeys(t *testing.T) {
	data := []byte(`---
title: "  Launch "
date: 10-01-2024
author: Ada Lovelace
author_initials: xq
teaser: Short and sweet
reading_time: "7"
tags: release, news ,
permalink: https://example.org/launch
hero: /static/images/launch.jpg
featured: true
---
Body text.
`)
	record, err := filenameBuilder().Build(File{Path: "launch.md"}, data)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if record.Title != "Launch" || record.Slug != "launch" || record.URL != "/news/launch/" {
		t.Fatalf("unexpected identity %q %q %q", record.Title, record.Slug, record.URL)
	}
	if !record.HasDate || record.DateDisplay != "10 Jan 2024" {
		t.Fatalf("unexpected date %v %q", record.Date, record.DateDisplay)
	}
	if record.AuthorInitials != "XQ" || record.ReadingTime != 7 || record.Teaser != "Short and sweet" {
		t.Fatalf("unexpected derived fields %+v", record)
	}
	if !reflect.DeepEqual(record.Tags, []string{"release", "news"}) {
		t.Fatalf("unexpected tags %v", record.Tags)
	}
	if record.Hero == nil || record.Hero.Src != "/static/images/launch.jpg" {
		t.Fatalf("unexpected hero %+v", record.Hero)
	}
	if record.Permalink != "https://example.org/launch" {
		t.Fatalf("unexpected permalink %q", record.Permalink)
	}
	if !reflect.DeepEqual(record.Params, map[string]any{"featured": true}) {
		t.Fatalf("expected only unknown keys in params, got %v", record.Params)
	}
	if !record.FrontMatter.Has("title") {
		t.Fatal("expected full front matter to be kept")
	}
}

func TestBuilderDefaults(t *testing.T) {
	builder := NewBuilder(BuilderConfig{Collection: "news", Now: fixedNow})

	record, err := builder.Build(File{Path: "x.md"}, []byte("Just a body without metadata.\n"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if record.Slug != "01-06-2025-NA" {
		t.Fatalf("expected derived slug from today, got %q", record.Slug)
	}
	if record.Title != normalize.TitleFromSlug(record.Slug) {
		t.Fatalf("expected title from slug, got %q", record.Title)
	}
	if record.URL != "/01-06-2025-NA/" {
		t.Fatalf("expected root prefix url, got %q", record.URL)
	}
	if record.HasDate || record.DateDisplay != "" {
		t.Fatalf("expected no date, got %v %q", record.Date, record.DateDisplay)
	}
	if record.ReadingTime != 1 || record.Teaser != "Just a body without metadata." {
		t.Fatalf("unexpected reading time or teaser: %d %q", record.ReadingTime, record.Teaser)
	}
	if record.Tags == nil || len(record.Tags) != 0 {
		t.Fatalf("expected empty tag list, got %#v", record.Tags)
	}
}

func TestBuilderHeroMapping(t *testing.T) {
	data := []byte("---\nhero:\n  src: images/a.jpg\n  alt: A picture\n---\nBody\n")
	record, err := filenameBuilder().Build(File{Path: "hero.md"}, data)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if record.Hero == nil || *record.Hero != (Hero{Src: "images/a.jpg", Alt: "A picture"}) {
		t.Fatalf("unexpected hero %+v", record.Hero)
	}
}

func TestNavigatorResolvesNeighbours(t *testing.T) {
	repo := NewRepository("news", NewFSSource(threePostFS(), SourceOptions{}), filenameBuilder())
	markdown := &stubMarkdown{}
	nav := NewNavigator(repo, markdown)
	ctx := context.Background()

	latest, err := nav.GetPage(ctx, "b-march", false)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if latest.Prev != nil {
		t.Fatalf("expected no prev for the latest post, got %+v", latest.Prev)
	}
	if latest.Next == nil || latest.Next.URL != "/news/a-january/" || latest.Next.Title != "January" {
		t.Fatalf("unexpected next %+v", latest.Next)
	}
	if latest.HTML != "<p>March body.</p>" || len(latest.TOC) != 1 {
		t.Fatalf("unexpected rendered body %q", latest.HTML)
	}

	middle, err := nav.GetPage(ctx, "a-january", false)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if middle.Prev == nil || middle.Prev.URL != "/news/b-march/" {
		t.Fatalf("expected prev to be the more recent post, got %+v", middle.Prev)
	}

	earliest, err := nav.GetPage(ctx, "c-someday", false)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if earliest.Next != nil {
		t.Fatalf("expected no next for the last post, got %+v", earliest.Next)
	}
	if markdown.calls != 3 {
		t.Fatalf("expected one render per page, got %d", markdown.calls)
	}
}

func TestNavigatorNotFoundAndEmpty(t *testing.T) {
	ctx := context.Background()

	repo := NewRepository("news", NewFSSource(threePostFS(), SourceOptions{}), filenameBuilder())
	_, err := NewNavigator(repo, &stubMarkdown{}).GetPage(ctx, "missing", false)
	if !errors.Is(err, ErrPostNotFound) || errors.Is(err, ErrRepositoryEmpty) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
	if !IsNotFound(err) {
		t.Fatal("expected IsNotFound to match")
	}

	empty := NewRepository("news", NewFSSource(fstest.MapFS{}, SourceOptions{}), filenameBuilder())
	_, err = NewNavigator(empty, &stubMarkdown{}).GetPage(ctx, "anything", false)
	if !errors.Is(err, ErrRepositoryEmpty) || errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrRepositoryEmpty, got %v", err)
	}
}

func TestPaginate(t *testing.T) {
	entries := make([]IndexEntry, 5)
	pages := Paginate(entries, 2)
	if len(pages) != 3 || len(pages[2]) != 1 {
		t.Fatalf("unexpected pagination %d pages", len(pages))
	}
	if got := Paginate(entries, 0); len(got) != 1 || len(got[0]) != 5 {
		t.Fatalf("expected a single page without size")
	}
	if got := Paginate(nil, 3); len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("expected one empty page for no entries")
	}
}

func TestParseCollisionPolicy(t *testing.T) {
	if got, err := ParseCollisionPolicy(""); err != nil || got != CollisionSuffix {
		t.Fatalf("expected suffix default, got %q %v", got, err)
	}
	if got, err := ParseCollisionPolicy("Overwrite"); err != nil || got != CollisionOverwrite {
		t.Fatalf("expected overwrite, got %q %v", got, err)
	}
	if _, err := ParseCollisionPolicy("merge"); !errors.Is(err, ErrUnknownCollisionPolicy) {
		t.Fatalf("expected ErrUnknownCollisionPolicy, got %v", err)
	}
}

func paths(files []File) []string {
	out := make([]string, 0, len(files))
	for _, file := range files {
		out = append(out, file.Path)
	}
	return out
}
