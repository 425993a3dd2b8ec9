package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/qidian-downloader/internal/assemble"
	"github.com/jonathan/qidian-downloader/internal/auth"
	"github.com/jonathan/qidian-downloader/internal/browser"
	"github.com/jonathan/qidian-downloader/internal/browser/browsertest"
	"github.com/jonathan/qidian-downloader/internal/catalog"
	"github.com/jonathan/qidian-downloader/internal/extract"
	"github.com/jonathan/qidian-downloader/internal/site"
	"github.com/jonathan/qidian-downloader/internal/types"
)

var validCookie = types.CookieCredentials{GUID: "guid", Key: "key"}

type fakeAuth struct {
	err   error
	calls int
}

func (f *fakeAuth) Authenticate(_ context.Context, _ browser.Session, _ types.Credentials) error {
	f.calls++
	return f.err
}

type fakeResolver struct {
	catalog *types.Catalog
	err     error
	calls   int
}

func (f *fakeResolver) Resolve(_ context.Context, _ browser.Session, _ int) (*types.Catalog, error) {
	f.calls++
	return f.catalog, f.err
}

type fakeExtractor struct {
	// failAt is the 0-based call that fails; -1 never fails.
	failAt int
	err    error
	calls  []types.CatalogEntry
}

func (f *fakeExtractor) Extract(_ context.Context, _ browser.Session, entry types.CatalogEntry) (types.ContentFragment, error) {
	f.calls = append(f.calls, entry)
	if len(f.calls)-1 == f.failAt {
		return types.ContentFragment{}, f.err
	}
	return fragmentFor(entry), nil
}

func fragmentFor(entry types.CatalogEntry) types.ContentFragment {
	return types.ContentFragment{
		Title:       "正文 " + entry.Title,
		ContentHTML: fmt.Sprintf("<p>%d.%d</p>\n", entry.SectionIndex, entry.SubsectionIndex),
	}
}

func bookCatalog(sizes ...int) *types.Catalog {
	c := &types.Catalog{Book: types.BookInfo{ID: 7, Title: "书", Author: "作者"}}
	for s, size := range sizes {
		for i := 0; i < size; i++ {
			c.Entries = append(c.Entries, types.CatalogEntry{
				SectionIndex:    s,
				SubsectionIndex: i,
				SectionTitle:    fmt.Sprintf("卷%d", s+1),
				Title:           fmt.Sprintf("第%d章", len(c.Entries)+1),
				SourceLocator:   fmt.Sprintf("https://read.example.com/%d", len(c.Entries)),
			})
		}
	}
	return c
}

func newFakeEngine(c *types.Catalog) (*Engine, *fakeAuth, *fakeResolver, *fakeExtractor) {
	a := &fakeAuth{}
	r := &fakeResolver{catalog: c}
	x := &fakeExtractor{failAt: -1}
	return New(a, r, x, nil), a, r, x
}

func TestRun_TwoSectionScenario(t *testing.T) {
	e, a, r, x := newFakeEngine(bookCatalog(2, 1))

	doc, err := e.Run(context.Background(), browsertest.New(nil), validCookie, 7)
	require.NoError(t, err)

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, r.calls)
	assert.Len(t, x.calls, 3)

	require.Len(t, doc.Sections, 2)
	assert.Len(t, doc.Sections[0].Subsections, 2)
	assert.Len(t, doc.Sections[1].Subsections, 1)
	assert.Equal(t, "书", doc.Title)
	assert.Equal(t, "作者", doc.Author)
	assert.Equal(t, "正文 第1章", doc.Sections[0].Subsections[0].Title)
	assert.Equal(t, "正文 第3章", doc.Sections[1].Subsections[0].Title)
}

func TestRun_EveryEntryExactlyOnceInOrder(t *testing.T) {
	c := bookCatalog(4, 1, 6, 2)
	e, _, _, x := newFakeEngine(c)

	doc, err := e.Run(context.Background(), browsertest.New(nil), validCookie, 7)
	require.NoError(t, err)

	assert.Equal(t, len(c.Entries), doc.SubsectionCount())
	assert.Equal(t, c.Entries, x.calls)

	fragments := make([]types.ContentFragment, len(c.Entries))
	for i, entry := range c.Entries {
		fragments[i] = fragmentFor(entry)
	}
	if diff := cmp.Diff(assemble.Assemble(c.Book, c.Entries, fragments), doc); diff != "" {
		t.Errorf("Run() document mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ChapterFailureAbortsRun(t *testing.T) {
	for _, kind := range []extract.Kind{extract.KindContentMissing, extract.KindSessionExpired} {
		t.Run(kind.String(), func(t *testing.T) {
			e, _, _, x := newFakeEngine(bookCatalog(10))
			x.failAt = 6
			x.err = &extract.Error{Kind: kind, Message: "boom"}

			doc, err := e.Run(context.Background(), browsertest.New(nil), validCookie, 7)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.Len(t, x.calls, 7, "no entries are extracted after the failing one")

			var runErr *RunError
			require.ErrorAs(t, err, &runErr)
			assert.Equal(t, StateExtracting, runErr.State)
			assert.Equal(t, 6, runErr.Index)
			assert.True(t, extract.IsKind(err, kind))
		})
	}
}

func TestRun_EmptyCatalog(t *testing.T) {
	e, _, r, x := newFakeEngine(nil)
	r.err = &catalog.Error{Kind: catalog.KindEmpty, BookID: 7, Message: "catalog lists no chapters"}

	doc, err := e.Run(context.Background(), browsertest.New(nil), validCookie, 7)
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.True(t, catalog.IsKind(err, catalog.KindEmpty))
	assert.Empty(t, x.calls)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateResolvingCatalog, runErr.State)
	assert.Equal(t, -1, runErr.Index)
}

func TestRun_ResolverWithoutEntriesIsEmpty(t *testing.T) {
	e, _, _, x := newFakeEngine(&types.Catalog{Book: types.BookInfo{ID: 7, Title: "书", Author: "作者"}})

	_, err := e.Run(context.Background(), browsertest.New(nil), validCookie, 7)
	assert.True(t, catalog.IsKind(err, catalog.KindEmpty))
	assert.Empty(t, x.calls)
}

func TestRun_MissingMetadata(t *testing.T) {
	c := bookCatalog(1)
	c.Book.Author = ""
	e, _, _, x := newFakeEngine(c)

	_, err := e.Run(context.Background(), browsertest.New(nil), validCookie, 7)
	assert.True(t, catalog.IsKind(err, catalog.KindMissingMetadata))
	assert.Empty(t, x.calls)
}

func TestRun_InvalidCookieStopsBeforeCatalog(t *testing.T) {
	e, _, r, x := newFakeEngine(bookCatalog(1))
	e.Auth = &fakeAuth{err: &auth.Error{Kind: auth.KindInvalidCookie, Method: "cookie", Message: "session is anonymous"}}

	_, err := e.Run(context.Background(), browsertest.New(nil), validCookie, 7)
	require.Error(t, err)
	assert.True(t, auth.IsKind(err, auth.KindInvalidCookie))
	assert.Zero(t, r.calls)
	assert.Empty(t, x.calls)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateAuthenticating, runErr.State)
}

func TestRun_InvalidCookieWithBrowserStages(t *testing.T) {
	p := site.QiDian()
	s := browsertest.New(map[string]string{
		p.VerifyURL: `<html><body><a id="j-topLoginBtn">登录</a></body></html>`,
	})
	e, err := NewForProfile(p, Options{AuthTimeout: time.Second, CatalogTimeout: time.Second, ContentTimeout: time.Second})
	require.NoError(t, err)

	_, err = e.Run(context.Background(), s, validCookie, 7)
	require.Error(t, err)
	assert.True(t, auth.IsKind(err, auth.KindInvalidCookie))
	assert.Equal(t, []string{p.VerifyURL}, s.Navigations(), "the catalog page is never loaded")
}

func TestRun_CredentialsRejectedBeforeNavigation(t *testing.T) {
	tests := []struct {
		name  string
		creds types.Credentials
	}{
		{name: "neither", creds: nil},
		{name: "cookie without guid", creds: types.CookieCredentials{Key: "key"}},
		{name: "account without password", creds: types.AccountCredentials{Username: "reader"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := browsertest.New(nil)
			e, err := NewForProfile(site.QiDian(), Options{})
			require.NoError(t, err)

			_, err = e.Run(context.Background(), s, tt.creds, 7)
			require.Error(t, err)

			var credErr *types.CredentialsError
			assert.ErrorAs(t, err, &credErr)
			assert.Empty(t, s.Navigations())
			assert.Empty(t, s.Cookies())

			var runErr *RunError
			require.ErrorAs(t, err, &runErr)
			assert.Equal(t, StateIdle, runErr.State)
		})
	}
}

func TestRun_InvalidBookID(t *testing.T) {
	e, a, _, _ := newFakeEngine(bookCatalog(1))

	_, err := e.Run(context.Background(), browsertest.New(nil), validCookie, 0)
	assert.True(t, catalog.IsKind(err, catalog.KindBookNotFound))
	assert.Zero(t, a.calls)
}

func TestRun_NilSession(t *testing.T) {
	e, a, _, _ := newFakeEngine(bookCatalog(1))

	_, err := e.Run(context.Background(), nil, validCookie, 7)
	require.Error(t, err)
	assert.Zero(t, a.calls)
}

func TestRun_CancelledBetweenChapters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, _, _, x := newFakeEngine(bookCatalog(5))
	e.OnProgress = func(event ProgressEvent) {
		if event.State == StateExtracting && event.Index == 2 {
			cancel()
		}
	}

	_, err := e.Run(ctx, browsertest.New(nil), validCookie, 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, x.calls, 2)
}

func TestRun_ProgressEvents(t *testing.T) {
	e, _, _, _ := newFakeEngine(bookCatalog(2, 1))

	var events []ProgressEvent
	e.OnProgress = func(event ProgressEvent) { events = append(events, event) }

	_, err := e.Run(context.Background(), browsertest.New(nil), validCookie, 7)
	require.NoError(t, err)

	var states []State
	var chapters []int
	for _, event := range events {
		assert.NotEmpty(t, event.RunID)
		assert.Equal(t, events[0].RunID, event.RunID)
		if event.Index > 0 {
			chapters = append(chapters, event.Index)
			assert.Equal(t, 3, event.Total)
			continue
		}
		states = append(states, event.State)
	}

	assert.Equal(t, []State{StateAuthenticating, StateResolvingCatalog, StateExtracting, StateAssembling, StateDone}, states)
	assert.Equal(t, []int{1, 2, 3}, chapters)
	assert.Equal(t, "正文 第3章", events[len(events)-3].Title)
}

func TestRun_FailureEmitsFailedState(t *testing.T) {
	e, _, r, _ := newFakeEngine(nil)
	r.err = errors.New("resolver exploded")

	var last ProgressEvent
	e.OnProgress = func(event ProgressEvent) { last = event }

	_, err := e.Run(context.Background(), browsertest.New(nil), validCookie, 7)
	require.Error(t, err)
	assert.Equal(t, StateFailed, last.State)
	assert.Contains(t, last.Message, "resolver exploded")
}

func TestRun_RunIDsDiffer(t *testing.T) {
	e, _, _, _ := newFakeEngine(bookCatalog(1))

	ids := map[string]bool{}
	e.OnProgress = func(event ProgressEvent) { ids[event.RunID] = true }

	for i := 0; i < 2; i++ {
		_, err := e.Run(context.Background(), browsertest.New(nil), validCookie, 7)
		require.NoError(t, err)
	}
	assert.Len(t, ids, 2)
}

func TestRun_EndToEndWithBrowserStages(t *testing.T) {
	p := site.QiDian()
	bookURL := p.BookURL(7)
	pages := map[string]string{
		p.VerifyURL: `<html><body><span id="j-topUserName">reader</span></body></html>`,
		bookURL: `<html><body>
			<div class="book-info"><h1><em>测试之书</em></h1><a class="writer">某作者</a></div>
			<div id="j-catalogWrap">
				<div class="volume"><h3>第一卷<span>免费</span></h3><ul>
					<li><a href="//read.qidian.com/chapter/a/1/">第一章</a></li>
					<li><a href="//read.qidian.com/chapter/a/2/">第二章</a></li>
				</ul></div>
				<div class="volume"><h3>第二卷</h3><ul>
					<li><a href="//read.qidian.com/chapter/a/3/">第三章</a></li>
				</ul></div>
			</div></body></html>`,
	}
	for i := 1; i <= 3; i++ {
		pages[fmt.Sprintf("https://read.qidian.com/chapter/a/%d/", i)] = fmt.Sprintf(
			`<html><body><h1 class="title">第%d章 正文</h1><div class="read-content j_readContent"><p>　　段落%d</p></div></body></html>`, i, i)
	}
	s := browsertest.New(pages)
	e, err := NewForProfile(p, Options{AuthTimeout: time.Second, CatalogTimeout: time.Second, ContentTimeout: time.Second})
	require.NoError(t, err)

	doc, err := e.Run(context.Background(), s, validCookie, 7)
	require.NoError(t, err)

	want := &types.Document{
		Title:  "测试之书",
		Author: "某作者",
		Sections: []types.Section{
			{Title: "第一卷", Subsections: []types.Subsection{
				{Title: "第1章 正文", ContentHTML: "<p>段落1</p>\n"},
				{Title: "第2章 正文", ContentHTML: "<p>段落2</p>\n"},
			}},
			{Title: "第二卷", Subsections: []types.Subsection{
				{Title: "第3章 正文", ContentHTML: "<p>段落3</p>\n"},
			}},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}

	guid, ok := s.Cookie(p.GUIDCookie)
	assert.True(t, ok)
	assert.Equal(t, "guid", guid)
	assert.Equal(t, p.VerifyURL, s.Navigations()[0])
	assert.Equal(t, bookURL, s.Navigations()[1])
	assert.Len(t, s.Navigations(), 5)
}

func TestRunError_Message(t *testing.T) {
	err := &RunError{State: StateExtracting, Index: 6, Err: errors.New("content missing")}
	assert.Equal(t, "run failed while extracting entry 7: content missing", err.Error())

	err = &RunError{State: StateAuthenticating, Index: -1, Err: errors.New("bad cookie")}
	assert.Equal(t, "run failed while authenticating: bad cookie", err.Error())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "resolving_catalog", StateResolvingCatalog.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateExtracting.Terminal())
}

func TestTableOfContents(t *testing.T) {
	c := bookCatalog(2, 1)
	e, a, r, x := newFakeEngine(c)

	var states []State
	e.OnProgress = func(event ProgressEvent) { states = append(states, event.State) }

	got, err := e.TableOfContents(context.Background(), browsertest.New(nil), validCookie, 7)
	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, r.calls)
	assert.Empty(t, x.calls)
	assert.Equal(t, []State{StateAuthenticating, StateResolvingCatalog, StateDone}, states)
}

func TestTableOfContents_RejectsCredentialsBeforeNavigation(t *testing.T) {
	s := browsertest.New(nil)
	e, err := NewForProfile(site.QiDian(), Options{})
	require.NoError(t, err)

	_, err = e.TableOfContents(context.Background(), s, nil, 7)
	var credErr *types.CredentialsError
	assert.ErrorAs(t, err, &credErr)
	assert.Empty(t, s.Navigations())
}

func TestNewForProfile_RejectsIncompleteProfile(t *testing.T) {
	p := site.QiDian()
	p.ChapterLink = ""
	p.ChapterContent = nil

	e, err := NewForProfile(p, Options{})
	require.Error(t, err)
	assert.Nil(t, e)
	assert.Contains(t, err.Error(), "chapter_content, chapter_link")

	_, err = NewForProfile(nil, Options{})
	require.Error(t, err)
}
