package generator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-freeze/internal/markdown"
	"github.com/goliatone/go-freeze/internal/normalize"
	"github.com/goliatone/go-freeze/internal/posts"
	"github.com/goliatone/go-freeze/internal/templates"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

var fixedNow = func() time.Time { return time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC) }

func siteTemplates() fstest.MapFS {
	return fstest.MapFS{
		"page.html": {Data: []byte(
			`<link rel="stylesheet" href="{{ asset "css/site.css" .Route }}">` +
				`<a href="{{ link "/news/" .Route }}">News</a>` +
				`{{ if .Data }}<h1>{{ .Data.title }}</h1>{{ end }}` +
				`<p>{{ .Site.Name }}</p><i>{{ global "mode" }}</i>`)},
		"listing.html": {Data: []byte(
			`{{ range .Listing.Entries }}<a href="{{ link .URL $.Route }}">{{ .Title }}</a>{{ end }}` +
				`|{{ .Listing.Page }}/{{ .Listing.TotalPages }}` +
				`{{ with .Listing.NextURL }}|next={{ link . $.Route }}{{ end }}` +
				`{{ with .Listing.PrevURL }}|prev={{ link . $.Route }}{{ end }}`)},
		"post.html": {Data: []byte(
			`<img src="{{ asset "/static/img/x.jpg" .Route }}">` +
				`<h1>{{ .Post.Record.Title }}</h1>{{ .Post.Content }}` +
				`{{ with .Post.Prev }}|prev={{ .URL }}{{ end }}` +
				`{{ with .Post.Next }}|next={{ .URL }}{{ end }}` +
				`|canonical={{ .Helpers.Canonical }}`)},
	}
}

func newsFS() fstest.MapFS {
	return fstest.MapFS{
		"a-january.md": {Data: []byte("---\ntitle: January\ndate: 2024-01-01\nauthor: Jane Doe\n---\nJanuary body.\n")},
		"b-march.md": {Data: []byte("---\ntitle: March\ndate: 2024-03-01\nauthor: Jane Doe\n---\n" +
			"March body with [a link](/news/a-january/) and ![img](/static/img/m.png).\n")},
		"c-someday.md": {Data: []byte("---\ntitle: Someday\n---\nUndated body.\n")},
	}
}

func newsRepository(fsys fstest.MapFS) *posts.Repository {
	builder := posts.NewBuilder(posts.BuilderConfig{
		Collection:   "news",
		RoutePrefix:  "/news/",
		SlugStrategy: normalize.SlugFilename,
		Now:          fixedNow,
	})
	return posts.NewRepository("news", posts.NewFSSource(fsys, posts.SourceOptions{}), builder)
}

func testConfig(output string) Config {
	return Config{
		OutputDir:       output,
		Mode:            ModeOffline,
		Origin:          "https://example.com/",
		SiteName:        "Freeze",
		CleanBuild:      true,
		CopyAssets:      true,
		GenerateSitemap: true,
		GenerateRobots:  true,
		GenerateFeeds:   true,
		WriteManifest:   true,
		Routes: []StaticRoute{
			{Name: "home", Path: "/", Template: "page.html"},
			{Name: "about", Path: "/about/", Template: "page.html", Data: "about.json"},
		},
		Collections: []CollectionRoutes{{
			Name:            "news",
			ListingTemplate: "listing.html",
			PostTemplate:    "post.html",
			PageSize:        2,
			Feed:            true,
		}},
	}
}

func testDependencies(repo Collection) Dependencies {
	return Dependencies{
		Collections: []Collection{repo},
		Renderer:    templates.NewRenderer(siteTemplates(), templates.Options{}),
		Markdown:    markdown.NewRenderer(interfaces.MarkdownOptions{}),
		Static: fstest.MapFS{
			"css/site.css": {Data: []byte("body{}")},
			".DS_Store":    {Data: []byte("junk")},
		},
		Data: fstest.MapFS{
			"about.json": {Data: []byte(`{"title":"About us"}`)},
		},
		Now: fixedNow,
	}
}

func newTestService(t *testing.T, cfg Config, deps Dependencies) *Service {
	t.Helper()
	svc, err := NewService(cfg, deps)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func readOutput(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func TestRoutesEnumeratesStaticListingAndPosts(t *testing.T) {
	svc := newTestService(t, testConfig(t.TempDir()), testDependencies(newsRepository(newsFS())))

	snapshots, err := svc.LoadSnapshots(context.Background(), false)
	if err != nil {
		t.Fatalf("LoadSnapshots: %v", err)
	}
	var got []string
	for _, route := range svc.Routes(snapshots) {
		got = append(got, string(route.Kind)+" "+route.Path+" "+route.Output())
	}
	want := []string{
		"static / index.html",
		"static /about/ about/index.html",
		"listing /news/ news/index.html",
		"listing /news/page/2/ news/page/2/index.html",
		"post /news/b-march/ news/b-march/index.html",
		"post /news/a-january/ news/a-january/index.html",
		"post /news/c-someday/ news/c-someday/index.html",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected routes:\n%s", strings.Join(got, "\n"))
	}
}

func TestRoutesDropDuplicatePaths(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Routes = append(cfg.Routes, StaticRoute{Name: "shadow", Path: "/news/", Template: "page.html"})

	svc := newTestService(t, cfg, testDependencies(newsRepository(newsFS())))
	snapshots, err := svc.LoadSnapshots(context.Background(), false)
	if err != nil {
		t.Fatalf("LoadSnapshots: %v", err)
	}
	routes, duplicates := buildRoutes(cfg.Routes, svc.bindings, snapshots)
	if !reflect.DeepEqual(duplicates, []string{"/news/"}) {
		t.Fatalf("unexpected duplicates %v", duplicates)
	}
	news, ok := FindRoute(routes, "/news")
	if !ok || news.Kind != RouteStatic {
		t.Fatalf("expected the static route to win, got %+v", news)
	}
}

func TestFindRoute(t *testing.T) {
	routes := []Route{
		{Name: "home", Path: "/"},
		{Name: "news", Path: "/news/"},
		{Name: "news:b", Path: "/news/b/"},
	}
	cases := map[string]string{
		"/":                  "home",
		"":                   "home",
		"/index.html":        "home",
		"/news":              "news",
		"/news/index.html":   "news",
		"news/b/":            "news:b",
		"/news/b/index.html": "news:b",
	}
	for path, want := range cases {
		route, ok := FindRoute(routes, path)
		if !ok || route.Name != want {
			t.Fatalf("FindRoute(%q) = %+v %v, want %s", path, route, ok, want)
		}
	}
	if _, ok := FindRoute(routes, "/missing/"); ok {
		t.Fatal("expected miss for unknown path")
	}
}

func TestBuildOutputPath(t *testing.T) {
	cases := map[string]string{
		"":             "index.html",
		"/":            "index.html",
		"/about/":      "about/index.html",
		"news/slug":    "news/slug/index.html",
		"/news/page/2": "news/page/2/index.html",
	}
	for route, want := range cases {
		if got := buildOutputPath(route); got != want {
			t.Fatalf("buildOutputPath(%q) = %q, want %q", route, got, want)
		}
	}
}

func TestPublishWritesRelocatableTree(t *testing.T) {
	out := t.TempDir()
	stale := filepath.Join(out, "stale.html")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	svc := newTestService(t, testConfig(out), testDependencies(newsRepository(newsFS())))
	result, err := svc.Publish(context.Background(), PublishOptions{})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if result.PagesBuilt != 7 || result.PagesFailed != 0 {
		t.Fatalf("unexpected page counts built=%d failed=%d", result.PagesBuilt, result.PagesFailed)
	}
	if result.Assets != 1 {
		t.Fatalf("expected one asset, got %d", result.Assets)
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected clean build to remove stale file, got %v", err)
	}

	home := readOutput(t, out, "index.html")
	for _, want := range []string{`href="static/css/site.css"`, `href="news/"`, "<p>Freeze</p>", "<i>offline</i>"} {
		if !strings.Contains(home, want) {
			t.Fatalf("home missing %s: %s", want, home)
		}
	}

	about := readOutput(t, out, "about/index.html")
	for _, want := range []string{`href="../static/css/site.css"`, `href="../news/"`, "<h1>About us</h1>"} {
		if !strings.Contains(about, want) {
			t.Fatalf("about missing %s: %s", want, about)
		}
	}

	listing := readOutput(t, out, "news/index.html")
	wantListing := `<a href="../news/b-march/">March</a><a href="../news/a-january/">January</a>|1/2|next=../news/page/2/`
	if listing != wantListing {
		t.Fatalf("unexpected listing:\n%s\nwant\n%s", listing, wantListing)
	}
	second := readOutput(t, out, "news/page/2/index.html")
	if second != `<a href="../../../news/c-someday/">Someday</a>|2/2|prev=../../../news/` {
		t.Fatalf("unexpected second listing page %s", second)
	}

	post := readOutput(t, out, "news/b-march/index.html")
	for _, want := range []string{
		`src="../../static/img/x.jpg"`,
		"<h1>March</h1>",
		`href="../../news/a-january/"`,
		`src="../../static/img/m.png"`,
		"|next=/news/a-january/",
		"|canonical=https://example.com/news/b-march/",
	} {
		if !strings.Contains(post, want) {
			t.Fatalf("post missing %s: %s", want, post)
		}
	}
	if strings.Contains(post, "|prev=") {
		t.Fatalf("newest post must not have a previous link: %s", post)
	}

	if got := readOutput(t, out, "static/css/site.css"); got != "body{}" {
		t.Fatalf("unexpected asset %q", got)
	}
	if _, err := os.Stat(filepath.Join(out, "static", ".DS_Store")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected hidden asset to be skipped, got %v", err)
	}

	sitemap := readOutput(t, out, "sitemap.xml")
	if !strings.Contains(sitemap, "<loc>https://example.com/news/b-march/</loc>") {
		t.Fatalf("sitemap missing post: %s", sitemap)
	}
	if !strings.Contains(sitemap, "<lastmod>2024-03-01</lastmod>") {
		t.Fatalf("sitemap missing post date: %s", sitemap)
	}
	robots := readOutput(t, out, "robots.txt")
	if !strings.Contains(robots, "Sitemap: https://example.com/sitemap.xml") {
		t.Fatalf("robots missing sitemap: %s", robots)
	}
	feed := readOutput(t, out, "news/feed.xml")
	if !strings.Contains(feed, "<link>https://example.com/news/b-march/</link>") ||
		!strings.Contains(feed, "<pubDate>Fri, 01 Mar 2024 00:00:00 +0000</pubDate>") {
		t.Fatalf("unexpected feed: %s", feed)
	}
	if !strings.Contains(readOutput(t, out, "news/atom.xml"), `<feed xmlns="http://www.w3.org/2005/Atom">`) {
		t.Fatal("expected atom feed")
	}

	var manifest buildManifest
	if err := json.Unmarshal([]byte(readOutput(t, out, manifestFileName)), &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if manifest.BuildID != result.BuildID || len(manifest.Pages) != 7 || len(manifest.Assets) != 1 {
		t.Fatalf("unexpected manifest %+v", manifest)
	}
	if manifest.Pages[0].Output != "about/index.html" {
		t.Fatalf("expected manifest pages sorted by output, got %s", manifest.Pages[0].Output)
	}
}

func TestPublishLiveModeUsesServerRelativeReferences(t *testing.T) {
	out := t.TempDir()
	cfg := testConfig(out)
	cfg.Mode = ModeLive
	cfg.Origin = ""
	cfg.LiveRoot = "http://localhost:8080/"

	svc := newTestService(t, cfg, testDependencies(newsRepository(newsFS())))
	if _, err := svc.Publish(context.Background(), PublishOptions{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	post := readOutput(t, out, "news/b-march/index.html")
	for _, want := range []string{
		`src="/static/img/x.jpg"`,
		`href="/news/a-january/"`,
		"|canonical=http://localhost:8080/news/b-march/",
	} {
		if !strings.Contains(post, want) {
			t.Fatalf("post missing %s: %s", want, post)
		}
	}
	for _, name := range []string{"sitemap.xml", "news/feed.xml"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(name))); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s to be skipped without origin, got %v", name, err)
		}
	}
	if robots := readOutput(t, out, "robots.txt"); strings.Contains(robots, "Sitemap:") {
		t.Fatalf("robots must not reference a missing sitemap: %s", robots)
	}
}

func TestPublishDryRunWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")

	svc := newTestService(t, testConfig(out), testDependencies(newsRepository(newsFS())))
	result, err := svc.Publish(context.Background(), PublishOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !result.DryRun || result.PagesBuilt != 7 {
		t.Fatalf("unexpected dry run result %+v", result)
	}
	if len(result.Files) == 0 {
		t.Fatal("expected dry run to report planned files")
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no output directory, got %v", err)
	}
}

func TestPublishContinuesAfterRenderFailure(t *testing.T) {
	out := t.TempDir()
	cfg := testConfig(out)
	cfg.Routes = append(cfg.Routes, StaticRoute{Name: "broken", Path: "/broken/", Template: "missing.html"})

	svc := newTestService(t, cfg, testDependencies(newsRepository(newsFS())))
	result, err := svc.Publish(context.Background(), PublishOptions{})
	if err == nil {
		t.Fatal("expected publish to report the failed route")
	}
	if !errors.Is(err, templates.ErrTemplateNotFound) {
		t.Fatalf("expected template not found error, got %v", err)
	}
	if result == nil || result.PagesFailed != 1 || result.PagesBuilt != 7 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, statErr := os.Stat(filepath.Join(out, "broken")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected failed route to be skipped, got %v", statErr)
	}
	readOutput(t, out, "news/c-someday/index.html")
	readOutput(t, out, manifestFileName)
}

func TestPublishFailsWhenCollectionCannotLoad(t *testing.T) {
	builder := posts.NewBuilder(posts.BuilderConfig{Collection: "news", RoutePrefix: "news"})
	repo := posts.NewRepository("news", posts.NewDirSource(filepath.Join(t.TempDir(), "missing"), posts.SourceOptions{}), builder)

	svc := newTestService(t, testConfig(t.TempDir()), testDependencies(repo))
	if _, err := svc.Publish(context.Background(), PublishOptions{}); !errors.Is(err, posts.ErrContentDirMissing) {
		t.Fatalf("expected ErrContentDirMissing, got %v", err)
	}
}

func TestPublishRefusesToCleanOverContentDir(t *testing.T) {
	root := t.TempDir()
	contentDir := filepath.Join(root, "posts")
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	post := filepath.Join(contentDir, "a.md")
	if err := os.WriteFile(post, []byte("---\ntitle: A\n---\nBody.\n"), 0o644); err != nil {
		t.Fatalf("write post: %v", err)
	}

	builder := posts.NewBuilder(posts.BuilderConfig{Collection: "news", RoutePrefix: "/news/", Now: fixedNow})
	repo := posts.NewRepository("news", posts.NewDirSource(contentDir, posts.SourceOptions{}), builder)

	for _, output := range []string{root, contentDir} {
		svc := newTestService(t, testConfig(output), testDependencies(repo))
		if _, err := svc.Publish(context.Background(), PublishOptions{}); !errors.Is(err, errUnsafeOutputDir) {
			t.Fatalf("output %s: expected errUnsafeOutputDir, got %v", output, err)
		}
		if _, err := os.Stat(post); err != nil {
			t.Fatalf("output %s: expected source post to survive, got %v", output, err)
		}
	}
}

func TestDirsOverlap(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"docs", "docs", true},
		{"docs", "docs/news", true},
		{"site/content", "site", true},
		{".", "content/news", true},
		{"docs", "content/news", false},
		{"docs", "docs-src", false},
		{"out", "../out", false},
	}
	for _, tc := range cases {
		got, err := DirsOverlap(tc.a, tc.b)
		if err != nil {
			t.Fatalf("DirsOverlap(%q, %q): %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Fatalf("DirsOverlap(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestPublishUsesRefreshedSnapshotOnForce(t *testing.T) {
	fsys := newsFS()
	repo := newsRepository(fsys)
	cfg := testConfig(t.TempDir())
	cfg.GenerateFeeds = false
	svc := newTestService(t, cfg, testDependencies(repo))

	if _, err := svc.Publish(context.Background(), PublishOptions{DryRun: true}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	fsys["d-new.md"] = &fstest.MapFile{Data: []byte("---\ntitle: Fresh\ndate: 2025-01-01\n---\nNew.\n")}

	cached, err := svc.Publish(context.Background(), PublishOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Publish cached: %v", err)
	}
	forced, err := svc.Publish(context.Background(), PublishOptions{DryRun: true, Force: true})
	if err != nil {
		t.Fatalf("Publish forced: %v", err)
	}
	if cached.PagesBuilt != 7 || forced.PagesBuilt != 8 {
		t.Fatalf("expected cached=7 forced=8, got %d %d", cached.PagesBuilt, forced.PagesBuilt)
	}
}

func TestCanonicalURL(t *testing.T) {
	cases := []struct {
		name      string
		cfg       Config
		permalink string
		want      string
	}{
		{"permalink wins", Config{Origin: "https://example.com"}, "https://elsewhere.test/p", "https://elsewhere.test/p"},
		{"origin", Config{Origin: "https://example.com/"}, "", "https://example.com/news/a/"},
		{"live root", Config{Mode: ModeLive, LiveRoot: "http://localhost:8080"}, "", "http://localhost:8080/news/a/"},
		{"offline without origin", Config{Mode: ModeOffline}, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, tc.cfg, Dependencies{Renderer: templates.NewRenderer(siteTemplates(), templates.Options{})})
			if got := svc.canonicalURL(tc.permalink, "/news/a/"); got != tc.want {
				t.Fatalf("canonicalURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	if _, err := NewService(Config{}, Dependencies{}); !errors.Is(err, errRendererRequired) {
		t.Fatalf("expected errRendererRequired, got %v", err)
	}
	cfg := Config{Collections: []CollectionRoutes{{Name: "events", PostTemplate: "post.html"}}}
	deps := Dependencies{Renderer: templates.NewRenderer(siteTemplates(), templates.Options{})}
	if _, err := NewService(cfg, deps); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}
