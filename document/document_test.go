package document

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgify/islandkit/errors"
)

const testPage = `<html><head>
<script type="application/json" id="calendar-props">{"view":"month","caseId":"JD001"}</script>
</head><body>
<div id="main">
  <div data-island="analytics" data-island-id="a1"
       data-island-groups="analytics dashboard"
       data-island-props='{"metric":"adci"}'></div>
  <div data-island="workflow" data-island-id="w1" data-island-groups="workflow"></div>
  <div data-island="calendar" data-island-id="c1" data-island-props-ref="calendar-props"></div>
</div>
</body></html>`

func parseTestPage(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(testPage)
	require.NoError(t, err)
	return doc
}

func TestFindMarkers(t *testing.T) {
	doc := parseTestPage(t)

	markers, malformed := doc.FindMarkers()
	require.Empty(t, malformed)
	require.Len(t, markers, 3)

	byID := make(map[string]int, len(markers))
	for i, m := range markers {
		byID[m.Descriptor.ID] = i
	}

	a1 := markers[byID["a1"]].Descriptor
	assert.Equal(t, "analytics", a1.Type)
	assert.Equal(t, []string{"analytics", "dashboard"}, a1.GroupTags)
	assert.JSONEq(t, `{"metric":"adci"}`, string(a1.InitialProperties))

	w1 := markers[byID["w1"]].Descriptor
	assert.Equal(t, "workflow", w1.Type)
	assert.Empty(t, w1.InitialProperties)
}

func TestFindMarkersPropsRef(t *testing.T) {
	doc := parseTestPage(t)

	markers, malformed := doc.FindMarkers()
	require.Empty(t, malformed)

	var props json.RawMessage
	for _, m := range markers {
		if m.Descriptor.ID == "c1" {
			props = m.Descriptor.InitialProperties
		}
	}
	assert.JSONEq(t, `{"view":"month","caseId":"JD001"}`, string(props))
}

func TestFindMarkersMalformed(t *testing.T) {
	page := `<html><body>
<div data-island="analytics"></div>
<div data-island="analytics" data-island-id="ok1"></div>
<div data-island="broken" data-island-id="b1" data-island-props='{oops'></div>
<div data-island="broken" data-island-id="b2" data-island-props-ref="missing"></div>
</body></html>`

	doc, err := ParseString(page)
	require.NoError(t, err)

	markers, malformed := doc.FindMarkers()
	require.Len(t, markers, 1)
	assert.Equal(t, "ok1", markers[0].Descriptor.ID)

	require.Len(t, malformed, 3)
	for _, merr := range malformed {
		assert.True(t, errors.IsInvalid(merr))
	}
}

func TestContainerSetHTML(t *testing.T) {
	doc := parseTestPage(t)

	markers, _ := doc.FindMarkers()
	var container *Container
	for _, m := range markers {
		if m.Descriptor.ID == "a1" {
			container = m.Container()
		}
	}
	require.NotNil(t, container)
	assert.Equal(t, "a1", container.ID())

	before := doc.Revision()
	require.NoError(t, container.SetHTML(`<section class="chart">ADCI trend</section>`))
	assert.Greater(t, doc.Revision(), before)
	assert.Contains(t, doc.String(), "ADCI trend")
}

func TestReplaceContent(t *testing.T) {
	doc := parseTestPage(t)

	err := doc.ReplaceContent("main", `<p>swapped</p>`)
	require.NoError(t, err)
	assert.Contains(t, doc.String(), "swapped")
	assert.NotContains(t, doc.String(), "data-island-id=\"a1\"")

	err = doc.ReplaceContent("missing", `<p>x</p>`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTargetNotFound))
}

func TestSetFallback(t *testing.T) {
	doc := parseTestPage(t)

	require.NoError(t, doc.SetFallback("a1", "failed to load"))

	rendered := doc.String()
	assert.Contains(t, rendered, "island-error")
	assert.Contains(t, rendered, "failed to load")

	err := doc.SetFallback("missing", "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMarkerNotFound))
}

func TestRemoveMarkerAndContains(t *testing.T) {
	doc := parseTestPage(t)

	assert.True(t, doc.Contains("a1"))
	before := doc.Revision()

	assert.True(t, doc.RemoveMarker("a1"))
	assert.False(t, doc.Contains("a1"))
	assert.Greater(t, doc.Revision(), before)

	assert.False(t, doc.RemoveMarker("a1"))
}

func TestReplaceBody(t *testing.T) {
	doc := parseTestPage(t)

	err := doc.ReplaceBody(`<div data-island="hero" data-island-id="h1"></div>`)
	require.NoError(t, err)

	markers, malformed := doc.FindMarkers()
	require.Empty(t, malformed)
	require.Len(t, markers, 1)
	assert.Equal(t, "h1", markers[0].Descriptor.ID)
}

func TestRenderRoundTrip(t *testing.T) {
	doc := parseTestPage(t)

	var sb strings.Builder
	require.NoError(t, doc.Render(&sb))
	assert.Contains(t, sb.String(), "data-island=\"analytics\"")
}
