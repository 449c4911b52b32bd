package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	memoryCmd := &cobra.Command{Use: "memory", Short: "Memory store operations"}

	// write
	var wCharacter, wPlayer, wText, wKeys string
	var wSalience int
	var wPublic bool
	writeCmd := &cobra.Command{
		Use:   "write",
		Short: "Write one memory record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if wCharacter == "" || wPlayer == "" || wText == "" {
				return fmt.Errorf("--character, --player and --text required")
			}
			payload := map[string]interface{}{
				"characterId": wCharacter,
				"playerId":    wPlayer,
				"text":        wText,
				"salience":    wSalience,
			}
			if wKeys != "" {
				payload["keys"] = strings.Split(wKeys, ",")
			}
			if wPublic {
				payload["private"] = false
			}
			data, err := doPostJSON(apiFlag+"/v1/memory/write", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	writeCmd.Flags().StringVarP(&wCharacter, "character", "c", "", "Character ID (required)")
	writeCmd.Flags().StringVarP(&wPlayer, "player", "p", "", "Player ID (required)")
	writeCmd.Flags().StringVarP(&wText, "text", "t", "", "Memory text (required)")
	writeCmd.Flags().IntVarP(&wSalience, "salience", "s", 1, "Salience 0..3")
	writeCmd.Flags().StringVar(&wKeys, "keys", "", "Comma-separated retrieval keys")
	writeCmd.Flags().BoolVar(&wPublic, "public", false, "Mark the memory public")
	memoryCmd.AddCommand(writeCmd)

	// top
	var tCharacter, tPlayer string
	var tK int
	topCmd := &cobra.Command{
		Use:   "top",
		Short: "Ranked retrieval for a (character, player) pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tCharacter == "" || tPlayer == "" {
				return fmt.Errorf("--character and --player required")
			}
			url := fmt.Sprintf("%s/v1/memory/top?characterId=%s&playerId=%s&k=%d",
				apiFlag, tCharacter, tPlayer, tK)
			data, err := doGet(url)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	topCmd.Flags().StringVarP(&tCharacter, "character", "c", "", "Character ID (required)")
	topCmd.Flags().StringVarP(&tPlayer, "player", "p", "", "Player ID (required)")
	topCmd.Flags().IntVarP(&tK, "k", "k", 3, "Number of memories to return")
	memoryCmd.AddCommand(topCmd)

	// dump
	var dCharacter, dPlayer string
	var dLimit int
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump all memories for a character",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dCharacter == "" {
				return fmt.Errorf("--character required")
			}
			url := fmt.Sprintf("%s/v1/memory/all/%s?limit=%d", apiFlag, dCharacter, dLimit)
			if dPlayer != "" {
				url += "&playerId=" + dPlayer
			}
			data, err := doGet(url)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	dumpCmd.Flags().StringVarP(&dCharacter, "character", "c", "", "Character ID (required)")
	dumpCmd.Flags().StringVarP(&dPlayer, "player", "p", "", "Optional player filter")
	dumpCmd.Flags().IntVarP(&dLimit, "limit", "l", 100, "Maximum records to return")
	memoryCmd.AddCommand(dumpCmd)

	rootCmd.AddCommand(memoryCmd)
}
