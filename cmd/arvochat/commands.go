package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arvocap/arvochat/internal/bridge"
	"github.com/arvocap/arvochat/internal/chat"
	"github.com/arvocap/arvochat/internal/config"
	"github.com/arvocap/arvochat/internal/contact"
	"github.com/arvocap/arvochat/internal/credentials"
	"github.com/arvocap/arvochat/internal/storage"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- ask ---

type askResult struct {
	Message        string           `json:"message"`
	Tier           string           `json:"tier"`
	Cached         bool             `json:"cached"`
	UsedKnowledge  bool             `json:"used_knowledge"`
	SuggestContact bool             `json:"suggest_contact"`
	SessionID      string           `json:"session_id"`
	ContactPrompt  string           `json:"contact_prompt"`
	Sources        []chat.SourceRef `json:"sources"`
}

func ask(ctx context.Context, c *apiClient, message, sessionID string) (askResult, error) {
	var res askResult
	resp, err := c.post(ctx, "/api/chat", map[string]string{"message": message, "session_id": sessionID})
	if err != nil {
		return res, err
	}
	err = decodeJSON(resp, &res)
	return res, err
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant a question",
	Long: `Ask the assistant a question, the same way the chat widget does.

Examples:
  arvochat ask "What is the minimum investment for the Money Market Fund?"
  arvochat ask --session 3f2a... "And the fees?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		res, err := ask(cmd.Context(), client, strings.Join(args, " "), sessionID)
		if err != nil {
			return err
		}

		fmt.Println(res.Message)
		for _, s := range res.Sources {
			fmt.Printf("  %s %s\n", colorize(colorCyan, s.Label), s.URL)
		}
		label := res.Tier
		if res.Cached {
			label += ", cached"
		}
		fmt.Fprintf(stderr, "%s session %s\n", colorize(tierColor(res.Tier), "["+label+"]"), res.SessionID)
		if res.SuggestContact {
			printWarning("%s", res.ContactPrompt)
			printWarning("Use 'arvochat contact --name ... --email ... --issue ...'")
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("session", "", "continue an existing conversation")
}

// --- faq ---

var faqCmd = &cobra.Command{
	Use:   "faq",
	Short: "List the built-in FAQ",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/faqs")
		if err != nil {
			return err
		}

		var body struct {
			FAQs []struct {
				ID       string `json:"id"`
				Category string `json:"category"`
				Question string `json:"question"`
			} `json:"faqs"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		for _, f := range body.FAQs {
			fmt.Printf("%s  %s  %s\n", colorize(colorCyan, f.ID), f.Category, f.Question)
		}
		return nil
	},
}

// --- contact ---

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Ask an investment specialist to follow up",
	Long: `Submit a contact request. It is acknowledged immediately and saved to the
contact spreadsheet and the local backup workbook in the background.

Example:
  arvochat contact --name "Amina Otieno" --email amina@example.com --issue "Joint account"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var sub contact.Submission
		sub.Name, _ = cmd.Flags().GetString("name")
		sub.Email, _ = cmd.Flags().GetString("email")
		sub.Issue, _ = cmd.Flags().GetString("issue")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/save-contact", sub)
		if err != nil {
			return err
		}

		var result struct {
			Message string `json:"message"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("%s", result.Message)
		return nil
	},
}

func init() {
	contactCmd.Flags().String("name", "", "full name")
	contactCmd.Flags().String("email", "", "email address")
	contactCmd.Flags().String("issue", "", "what you need help with")
	contactCmd.MarkFlagRequired("name")
	contactCmd.MarkFlagRequired("email")
	contactCmd.MarkFlagRequired("issue")
}

// --- admin ---

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage the knowledge service and credentials",
}

type adminResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// adminPost posts a JSON body and reports the server's message.
func adminPost(ctx context.Context, c *apiClient, path string, body any) (adminResult, error) {
	var res adminResult
	resp, err := c.post(ctx, path, body)
	if err != nil {
		return res, err
	}
	err = decodeJSON(resp, &res)
	return res, err
}

var adminStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge service health and training stats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/admin/status")
		if err != nil {
			return err
		}

		var st struct {
			Backend struct {
				Healthy bool   `json:"healthy"`
				Error   string `json:"error"`
				Size    *int   `json:"knowledge_base_size"`
			} `json:"backend"`
			Training bridge.TrainingStats `json:"training"`
		}
		if err := decodeJSON(resp, &st); err != nil {
			return err
		}

		if st.Backend.Healthy {
			printStatus("Knowledge", "connected")
		} else {
			printStatus("Knowledge", "unavailable (%s)", st.Backend.Error)
		}
		if st.Backend.Size != nil {
			printStatus("KB size", "%d", *st.Backend.Size)
		}
		printStatus("Documents", "%d", st.Training.TotalDocuments)
		printStatus("Websites", "%d", st.Training.TotalWebsites)
		printStatus("Manual", "%d", st.Training.ManualEntries)
		if st.Training.LastTrained != "" {
			printStatus("Trained", "%s", st.Training.LastTrained)
		}
		return nil
	},
}

var adminRetrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Rebuild the knowledge index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		res, err := adminPost(cmd.Context(), client, "/admin/retrain", map[string]bool{"force": force})
		if err != nil {
			return err
		}
		if res.JobID != "" {
			printSuccess("%s (job %s)", res.Message, res.JobID)
			return nil
		}
		printSuccess("%s", res.Message)
		return nil
	},
}

func init() {
	adminRetrainCmd.Flags().Bool("force", false, "rebuild even if nothing changed")
}

var adminKnowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "List or delete knowledge base items",
}

var adminKnowledgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge base items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/admin/knowledge-base")
		if err != nil {
			return err
		}

		var list bridge.KnowledgeList
		if err := decodeJSON(resp, &list); err != nil {
			return err
		}
		if len(list.Items) == 0 {
			fmt.Println("Knowledge base is empty.")
			return nil
		}
		for _, it := range list.Items {
			fmt.Printf("%s  %-8s  %s\n", colorize(colorCyan, it.ID), it.SourceType, it.Title)
		}
		fmt.Printf("\n%d item(s)\n", list.TotalItems)
		return nil
	},
}

var adminKnowledgeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a knowledge base item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/admin/knowledge-base/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var res adminResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		printSuccess("%s", res.Message)
		return nil
	},
}

func init() {
	adminKnowledgeCmd.AddCommand(adminKnowledgeListCmd)
	adminKnowledgeCmd.AddCommand(adminKnowledgeDeleteCmd)
}

var adminScrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Crawl a website into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		depth, _ := cmd.Flags().GetInt("depth")
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")
		chunkOverlap, _ := cmd.Flags().GetInt("chunk-overlap")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		res, err := adminPost(cmd.Context(), client, "/admin/scrape-website", map[string]any{
			"url":          args[0],
			"depth":        depth,
			"chunkSize":    chunkSize,
			"chunkOverlap": chunkOverlap,
		})
		if err != nil {
			return err
		}
		printSuccess("%s", res.Message)
		return nil
	},
}

func init() {
	adminScrapeCmd.Flags().Int("depth", 2, "link depth to follow (1-5)")
	adminScrapeCmd.Flags().Int("chunk-size", bridge.DefaultChunkSize, "characters per chunk")
	adminScrapeCmd.Flags().Int("chunk-overlap", bridge.DefaultChunkOverlap, "overlap between chunks")
}

var adminAddEntryCmd = &cobra.Command{
	Use:   "add-entry",
	Short: "Add a manual knowledge base entry",
	Long: `Add a manual knowledge base entry.

Examples:
  arvochat admin add-entry --title "Office hours" --content "Mon-Fri 8am-5pm"
  arvochat admin add-entry --title "Fee schedule" --file ./fees.md`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		content, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("file")

		if content == "" && file == "" {
			return fmt.Errorf("one of --content or --file is required")
		}
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			content = string(data)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		res, err := adminPost(cmd.Context(), client, "/admin/add-manual-entry", map[string]string{
			"title":   title,
			"content": content,
		})
		if err != nil {
			return err
		}
		printSuccess("%s", res.Message)
		return nil
	},
}

func init() {
	adminAddEntryCmd.Flags().String("title", "", "entry title")
	adminAddEntryCmd.Flags().String("content", "", "entry text")
	adminAddEntryCmd.Flags().String("file", "", "read entry text from a file")
	adminAddEntryCmd.MarkFlagRequired("title")
}

// uploadBody builds the multipart form the upload route expects.
func uploadBody(paths []string, ocr bool, chunkSize, chunkOverlap int) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, "", err
		}
		part, err := mw.CreateFormFile("documents", filepath.Base(p))
		if err != nil {
			f.Close()
			return nil, "", err
		}
		_, err = io.Copy(part, f)
		f.Close()
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", p, err)
		}
	}

	fields := map[string]string{
		"ocrEnabled":   strconv.FormatBool(ocr),
		"chunkSize":    strconv.Itoa(chunkSize),
		"chunkOverlap": strconv.Itoa(chunkOverlap),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

var adminUploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload documents into the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ocr, _ := cmd.Flags().GetBool("ocr")
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")
		chunkOverlap, _ := cmd.Flags().GetInt("chunk-overlap")

		body, contentType, err := uploadBody(args, ocr, chunkSize, chunkOverlap)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.postMultipart(cmd.Context(), "/admin/upload-documents", body, contentType)
		if err != nil {
			return err
		}

		var res adminResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		printSuccess("%s", res.Message)
		return nil
	},
}

func init() {
	adminUploadCmd.Flags().Bool("ocr", false, "run OCR on scanned pages")
	adminUploadCmd.Flags().Int("chunk-size", bridge.DefaultChunkSize, "characters per chunk")
	adminUploadCmd.Flags().Int("chunk-overlap", bridge.DefaultChunkOverlap, "overlap between chunks")
}

var adminSetKeyCmd = &cobra.Command{
	Use:   "set-key <api-key>",
	Short: "Replace the completion provider API key on the running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if _, err := adminPost(cmd.Context(), client, "/admin/settings", map[string]string{
			"provider": provider,
			"apiKey":   args[0],
		}); err != nil {
			return err
		}
		printSuccess("API key updated for %s", provider)
		return nil
	},
}

func init() {
	adminSetKeyCmd.Flags().String("provider", credentials.ProviderOpenAI, "completion provider")
}

// googleCredentials reads a service-account key file and attaches the
// spreadsheet id.
func googleCredentials(path, spreadsheetID string) (credentials.Google, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return credentials.Google{}, fmt.Errorf("reading credentials file: %w", err)
	}
	g, err := credentials.ParseServiceAccount(data)
	if err != nil {
		return credentials.Google{}, err
	}
	g.SpreadsheetID = spreadsheetID
	return g, nil
}

var adminGoogleCmd = &cobra.Command{
	Use:   "google",
	Short: "Replace the contact spreadsheet credentials on the running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("credentials-file")
		sheetID, _ := cmd.Flags().GetString("spreadsheet-id")

		g, err := googleCredentials(file, sheetID)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if _, err := adminPost(cmd.Context(), client, "/admin/google", g); err != nil {
			return err
		}
		printSuccess("Google credentials updated for %s", g.ClientEmail)
		return nil
	},
}

func init() {
	adminGoogleCmd.Flags().String("credentials-file", "", "service account JSON key file")
	adminGoogleCmd.Flags().String("spreadsheet-id", "", "contact spreadsheet id")
	adminGoogleCmd.MarkFlagRequired("credentials-file")
	adminGoogleCmd.MarkFlagRequired("spreadsheet-id")
}

var adminContactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List submitted contact requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/admin/contacts")
		if err != nil {
			return err
		}

		var body struct {
			Contacts       []contact.Row `json:"contacts"`
			SpreadsheetURL string        `json:"spreadsheet_url"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		if len(body.Contacts) == 0 {
			fmt.Println("No contact requests yet.")
		}
		for _, c := range body.Contacts {
			fmt.Printf("%s  %s <%s>  %s\n", c.Timestamp, colorize(colorBold, c.Name), c.Email, c.Issue)
		}
		if body.SpreadsheetURL != "" {
			fmt.Printf("\n%s\n", body.SpreadsheetURL)
		}
		return nil
	},
}

var adminStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print raw training statistics as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/admin/training-stats")
		if err != nil {
			return err
		}

		var stats bridge.TrainingStats
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}
		return printJSON(stats)
	},
}

func init() {
	adminCmd.AddCommand(adminStatusCmd)
	adminCmd.AddCommand(adminStatsCmd)
	adminCmd.AddCommand(adminRetrainCmd)
	adminCmd.AddCommand(adminKnowledgeCmd)
	adminCmd.AddCommand(adminScrapeCmd)
	adminCmd.AddCommand(adminAddEntryCmd)
	adminCmd.AddCommand(adminUploadCmd)
	adminCmd.AddCommand(adminSetKeyCmd)
	adminCmd.AddCommand(adminGoogleCmd)
	adminCmd.AddCommand(adminContactsCmd)
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Inspect recorded chat turns",
}

type interactionPage struct {
	Interactions []storage.Interaction `json:"interactions"`
	ByTier       []storage.TierCount   `json:"by_tier"`
}

func listInteractions(ctx context.Context, c *apiClient, limit, offset int) (interactionPage, error) {
	var page interactionPage
	resp, err := c.get(ctx, fmt.Sprintf("/admin/interactions?limit=%d&offset=%d", limit, offset))
	if err != nil {
		return page, err
	}
	err = decodeJSON(resp, &page)
	return page, err
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		page, err := listInteractions(cmd.Context(), client, limit, offset)
		if err != nil {
			return err
		}

		if len(page.Interactions) == 0 {
			fmt.Println("No interactions found.")
			return nil
		}

		for _, ix := range page.Interactions {
			query := ix.Query
			if len(query) > 80 {
				query = query[:80] + "..."
			}
			id := ix.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Printf("%s  %s  %s  %s\n",
				colorize(colorCyan, id),
				ix.CreatedAt.Format("2006-01-02 15:04:05"),
				colorize(tierColor(ix.Tier), fmt.Sprintf("%-8s", ix.Tier)),
				query,
			)
		}

		parts := make([]string, len(page.ByTier))
		for i, tc := range page.ByTier {
			parts[i] = fmt.Sprintf("%s=%d", tc.Tier, tc.Count)
		}
		fmt.Printf("\nby tier: %s\n", strings.Join(parts, " "))
		return nil
	},
}

func init() {
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	interactionsListCmd.Flags().Int("offset", 0, "number of interactions to skip")
	interactionsCmd.AddCommand(interactionsListCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value. Valid keys:\n  " + strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> <value>",
	Short: "Store a secret in the platform secret store",
	Long: "Store a secret in the platform secret store. Valid keys:\n  " + strings.Join(config.SecretKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetSecret(args[0], args[1]); err != nil {
			return err
		}

		printSuccess("Stored %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
