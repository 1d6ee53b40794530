package javaparse

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

var (
	grammar     *sitter.Language
	grammarOnce sync.Once
)

// Language returns the tree-sitter Java grammar.
func Language() *sitter.Language {
	grammarOnce.Do(func() {
		grammar = java.GetLanguage()
	})
	return grammar
}

// LanguageName is the language recorded for indexed files.
const LanguageName = "java"

// IsJavaFile reports whether path names a Java source file.
func IsJavaFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".java")
}

// LanguageForFile returns the language of path based on its extension.
// Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	if IsJavaFile(path) {
		return LanguageName, true
	}
	return "", false
}
