package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mitcircs/internal"
	"mitcircs/internal/layout"
)

func TestHeaderResolver(t *testing.T) {
	header := internal.Row{"Name", "3 - Programme", "4 - Programme", "5 - Programme", "Year"}
	r := NewHeaderResolver(header, nil)

	assert.Equal(t, []int{1, 2, 3}, r.Indices("Programme"))
	assert.Equal(t, "BA History", r.Resolve(internal.Row{"x", "", " BA History ", "BSc Physics"}, "Programme"))
	assert.Equal(t, "BSc Physics", r.Resolve(internal.Row{"x", "nan", "", "BSc Physics"}, "Programme"))
	assert.Equal(t, "...", r.Resolve(internal.Row{"x", "", "", ""}, "Programme"))
	assert.Equal(t, "...", r.Resolve(internal.Row{"x"}, "programme"))
}

func TestResolveScalarColumns(t *testing.T) {
	columns, header := surveyColumns("3")
	got, err := resolveScalarColumns(columns, header, layout.Default(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, got[layout.KeyName])
	assert.Equal(t, 2, got[layout.KeyEmail])
	assert.Equal(t, 3, got[layout.KeyStudentID])
}

func TestResolveScalarColumnsHintOrder(t *testing.T) {
	columns := []string{"Q3", "Q3"}
	header := internal.Row{"Will you be submitting evidence with your application?", "Your email address"}
	lay := layout.Default()
	lay.Scalars = []layout.ScalarField{{Key: layout.KeyEmail, Label: "Email Address", Column: "Q3", Required: true, Hint: "email"}}

	got, err := resolveScalarColumns(columns, header, lay, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, got[layout.KeyEmail])
}

func TestResolveScalarColumnsAmbiguous(t *testing.T) {
	lay := layout.Default()
	lay.Scalars = []layout.ScalarField{{Key: layout.KeyAdvisor, Label: "Advisor Name", Column: "Q17", Required: true}}
	got, err := resolveScalarColumns([]string{"Q17", "Q17"}, internal.Row{"a", "b"}, lay, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, got[layout.KeyAdvisor])
}
