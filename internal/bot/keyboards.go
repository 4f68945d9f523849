package bot

import (
	"github.com/nikishkaa/docx-bot/internal/model"
	"github.com/nikishkaa/docx-bot/internal/taxonomy"
	"github.com/nikishkaa/docx-bot/internal/telegram"
)

const (
	btnFiles   = "📁 File list"
	btnUpload  = "📤 Upload file"
	btnSearch  = "🔍 Search"
	btnMyStats = "📊 My downloads"
	btnAI      = "🤖 AI chat"
	btnHelp    = "❓ Help"

	btnBack   = "⬅️ Back to categories"
	btnMain   = "🔙 Main menu"
	btnExitAI = "🚪 Exit AI chat"
	btnNoSub  = "⏭ No subcategory"

	prefixCategory    = "📂 "
	prefixSubcategory = "🗂 "
	prefixFile        = "📥 "
)

// Commands is the command menu published with setMyCommands.
func Commands() []telegram.BotCommand {
	return []telegram.BotCommand{
		{Command: "start", Description: "Main menu"},
		{Command: "help", Description: "How to use the bot"},
		{Command: "files", Description: "Browse files by category"},
		{Command: "get", Description: "Download a file: /get <name>"},
		{Command: "search", Description: "Find files: /search <text>"},
		{Command: "stats", Description: "Downloads of a file: /stats <name>"},
		{Command: "mystats", Description: "Your downloads"},
		{Command: "ai", Description: "Chat with the AI assistant"},
		{Command: "exit", Description: "Leave AI chat"},
	}
}

func mainMenu() *telegram.ReplyKeyboard {
	return telegram.Keyboard(
		[]string{btnFiles, btnUpload},
		[]string{btnSearch, btnMyStats},
		[]string{btnAI, btnHelp},
	)
}

func categoryMenu(cats []taxonomy.Category) *telegram.ReplyKeyboard {
	rows := make([][]string, 0, len(cats)+1)
	for _, c := range cats {
		rows = append(rows, []string{prefixCategory + c.Name})
	}
	rows = append(rows, []string{btnMain})
	return telegram.Keyboard(rows...)
}

func subcategoryChoiceMenu(subs []string) *telegram.ReplyKeyboard {
	rows := make([][]string, 0, len(subs)+2)
	for _, s := range subs {
		rows = append(rows, []string{prefixSubcategory + s})
	}
	rows = append(rows, []string{btnNoSub}, []string{btnMain})
	return telegram.Keyboard(rows...)
}

// browseMenu offers the scope's subcategories, then its files.
func browseMenu(subs []string, files []model.StoredFile) *telegram.ReplyKeyboard {
	rows := make([][]string, 0, len(subs)+len(files)+1)
	for _, s := range subs {
		rows = append(rows, []string{prefixSubcategory + s})
	}
	for _, f := range files {
		rows = append(rows, []string{prefixFile + f.Name})
	}
	rows = append(rows, []string{btnBack, btnMain})
	return telegram.Keyboard(rows...)
}

func resultsMenu(files []model.StoredFile) *telegram.ReplyKeyboard {
	rows := make([][]string, 0, len(files)+1)
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		rows = append(rows, []string{prefixFile + f.Name})
	}
	rows = append(rows, []string{btnMain})
	return telegram.Keyboard(rows...)
}

func aiMenu() *telegram.ReplyKeyboard {
	return telegram.Keyboard([]string{btnExitAI})
}
