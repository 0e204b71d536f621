package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olgkv/linkchecker/internal/domain"
)

func verdict(code int) domain.LinkVerdict {
	return domain.LinkVerdict{StatusCode: domain.StatusPtr(code), OK: code >= 200 && code <= 299}
}

func TestShouldArchive(t *testing.T) {
	none := NewStatusSet()
	tests := []struct {
		name    string
		final   domain.LinkVerdict
		mode    Mode
		include StatusSet
		exclude StatusSet
		want    bool
	}{
		{"standard 200", verdict(200), ModeStandard, none, none, true},
		{"standard 204", verdict(204), ModeStandard, none, none, true},
		{"standard 301", verdict(301), ModeStandard, none, none, false},
		{"standard 404", verdict(404), ModeStandard, none, none, false},
		{"strong 500", verdict(500), ModeStrong, none, none, true},
		{"strong 403", verdict(403), ModeStrong, none, none, true},
		{"strong 404", verdict(404), ModeStrong, none, none, false},
		{"exclusion beats inclusion", verdict(200), ModeStandard, NewStatusSet(200, 404), NewStatusSet(200), false},
		{"inclusion replaces standard default", verdict(404), ModeStandard, NewStatusSet(200, 404), none, true},
		{"inclusion replaces strong default", verdict(500), ModeStrong, NewStatusSet(200), none, false},
		{"exclusion in strong mode", verdict(410), ModeStrong, none, NewStatusSet(410), false},
		{"transport failure", domain.TransportFailure("x"), ModeStrong, none, none, false},
		{"transport failure with inclusion", domain.TransportFailure("x"), ModeStrong, NewStatusSet(200), none, false},
		{"malformed", domain.MalformedURL("x"), ModeStandard, none, none, false},
		{"mode none", verdict(200), ModeNone, none, none, false},
		{"nil sets", verdict(200), ModeStandard, nil, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldArchive(tc.final, tc.mode, tc.include, tc.exclude)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, ShouldArchive(tc.final, tc.mode, tc.include, tc.exclude), "must be stable")
		})
	}
}

func TestExclusionAlwaysWins(t *testing.T) {
	for code := 100; code < 600; code++ {
		set := NewStatusSet(code)
		for _, mode := range []Mode{ModeStandard, ModeStrong} {
			assert.False(t, ShouldArchive(verdict(code), mode, set, set), "code %d mode %s", code, mode)
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeNone, "none": ModeNone, "Standard": ModeStandard, " strong ": ModeStrong} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		if in != "" {
			back, err := ParseMode(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, back)
		}
	}
	_, err := ParseMode("aggressive")
	assert.Error(t, err)
}

func TestPartition(t *testing.T) {
	report := domain.LinkReport{
		"https://ok.example/":      {verdict(200)},
		"https://moved.example/":   {verdict(301), verdict(200)},
		"https://missing.example/": {verdict(404)},
		"https://broken.example/":  {verdict(500)},
		"http://ww.example/":       {domain.TransportFailure("http://ww.example/")},
		"not a url":                {domain.MalformedURL("not a url")},
		"empty":                    {},
	}

	sel := Partition(report, Rules{Mode: ModeStrong})
	assert.Equal(t, []string{"https://broken.example/", "https://moved.example/", "https://ok.example/"}, sel.Accepted)
	assert.Equal(t, []string{"https://missing.example/"}, sel.Excluded)
	assert.Equal(t, []string{"empty", "http://ww.example/", "not a url"}, sel.Invalid)

	sel = Partition(report, Rules{Mode: ModeStandard, Exclude: NewStatusSet(200)})
	assert.Empty(t, sel.Accepted)
	assert.Len(t, sel.Excluded, 4)
}

func TestStatusSetCodes(t *testing.T) {
	assert.Equal(t, []int{200, 301, 404}, NewStatusSet(404, 200, 301, 200).Codes())
	assert.Empty(t, NewStatusSet().Codes())
}
