package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("yaml"))
	assert.Error(t, validateFormat(""))
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "go", languageForFile("internal/session/store.go"))
	assert.Equal(t, "javascript", languageForFile("app.MJS"))
	assert.Equal(t, "html", languageForFile("index.html"))
	assert.Equal(t, "yaml", languageForFile("deploy.yml"))
	assert.Equal(t, "", languageForFile("README"))
	assert.Equal(t, "", languageForFile("archive.tar.gz"))
}
