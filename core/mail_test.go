package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/core/student"
	"github.com/trezcool/ktx/tests"
)

func TestParseEmailTemplates(t *testing.T) {
	conf := testutil.Config()
	logger := new(testutil.Logger)
	core.ParseEmailTemplates(conf, logger)
	require.Zero(t, logger.Count("error"), "templates parse with their base layouts")

	msg := &core.EmailMessage{
		TemplateName: "student_registered",
		TemplateData: student.Student{Name: "An", MSSV: "001", Email: "an@test.vn"},
	}
	require.NoError(t, msg.Render())
	assert.True(t, msg.HasContent())
	assert.Contains(t, msg.TextContent, "Hello An,")
	assert.Contains(t, msg.TextContent, "Student ID: 001")
	assert.Contains(t, msg.HTMLContent, "An")

	unknown := &core.EmailMessage{TemplateName: "lol"}
	require.NoError(t, unknown.Render())
	assert.False(t, unknown.HasContent())
}
