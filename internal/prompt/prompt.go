// Package prompt guarda a instrução de sistema e a mensagem de boas-vindas
// do MovieRecs AI. Todo o fluxo de menus vive no texto da instrução e é
// interpretado pelo modelo.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed system_instruction.md
var systemInstruction string

// Welcome é a primeira mensagem de toda conversa. Ela é exibida localmente e
// nunca é enviada ao modelo.
const Welcome = "Welcome to MovieRecs AI! Please select your preferred language by entering a number:\n" +
	"1. English (Hollywood)\n" +
	"2. Hindi (Bollywood)\n" +
	"3. Kannada (Sandalwood)"

// SystemInstruction retorna a instrução embutida no binário
func SystemInstruction() string {
	return systemInstruction
}

// Load retorna a instrução lida de path, ou a embutida quando path é vazio
func Load(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return systemInstruction, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system instruction: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("system instruction file %s is empty", path)
	}
	return text, nil
}
