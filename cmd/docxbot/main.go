package main

import (
	_ "github.com/joho/godotenv/autoload"
)

// @title docx-bot ops API
// @version 1.0
// @description Read-only operations API of the docx-bot file store.
// @BasePath /
func main() {
	Execute()
}
