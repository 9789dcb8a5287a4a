package crawl

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLink(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://example.com/docs/intro")
	require.NoError(t, err)

	tests := []struct {
		name    string
		href    string
		want    string
		wantErr bool
	}{
		{name: "relative", href: "guide", want: "https://example.com/docs/guide"},
		{name: "root relative", href: "/about", want: "https://example.com/about"},
		{name: "absolute other host", href: "https://other.org/page", want: "https://other.org/page"},
		{name: "fragment only", href: "#section", wantErr: true},
		{name: "empty", href: "", wantErr: true},
		{name: "mailto", href: "mailto:hi@example.com", wantErr: true},
		{name: "javascript", href: "javascript:void(0)", wantErr: true},
		{name: "unparseable", href: "http://%zz", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u, err := ResolveLink(base, tc.href)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, u.String())
		})
	}
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/page#top", "https://example.com/page"},
		{"https://example.com/page/", "https://example.com/page"},
		{"https://example.com/", "https://example.com"},
		{"https://example.com/a/b?q=1#frag", "https://example.com/a/b?q=1"},
	}
	for _, tc := range tests {
		u, err := url.Parse(tc.raw)
		require.NoError(t, err)
		require.Equal(t, tc.want, Canonicalize(u))
	}
}

func TestIsHTMLContent(t *testing.T) {
	t.Parallel()

	require.True(t, IsHTMLContent("text/html"))
	require.True(t, IsHTMLContent("text/html; charset=utf-8"))
	require.True(t, IsHTMLContent("Text/HTML"))
	require.False(t, IsHTMLContent("application/pdf"))
	require.False(t, IsHTMLContent("application/json"))
	require.False(t, IsHTMLContent(""))
}
