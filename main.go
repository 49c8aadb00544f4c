package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docconverter",
	Short: "DOCX <-> PDF conversion service",
	Long: `docconverter converts Word documents to PDF and PDF documents to Word.

Without a subcommand it starts the HTTP service, the same as "serve".
Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
