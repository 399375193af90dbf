package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	// Global flags
	serverURL string
	timeout   time.Duration

	// Query command flags
	preset      string
	documents   []string
	userID      string
	stage2      bool
	noStage2    bool
	limit       int
	fusion      string
	rawJSON     bool
	showContent bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "searchcli",
	Short:   "Query the retrieval pipeline service",
	Version: version,
}

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run a search query through the pipeline",
	Long: `Run a search query through the two-stage retrieval pipeline.

Examples:
  # Balanced defaults
  searchcli query "what is machine learning"

  # Fast stage-1 only retrieval
  searchcli query "neural network training" --preset speed

  # Restrict to specific documents and cap results
  searchcli query "llm optimization" --documents doc-1,doc-2 --limit 5

  # Force RRF fusion and print raw JSON
  searchcli query "database indexing" --fusion reciprocal_rank_fusion --json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the service is up",
	RunE:  checkHealth,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9020", "pipeline server base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	queryCmd.Flags().StringVar(&preset, "preset", "", "config preset: speed, accuracy, or balanced")
	queryCmd.Flags().StringSliceVar(&documents, "documents", nil, "restrict search to these document IDs")
	queryCmd.Flags().StringVar(&userID, "user", "", "user ID recorded with the query")
	queryCmd.Flags().BoolVar(&stage2, "stage2", false, "force reranking on")
	queryCmd.Flags().BoolVar(&noStage2, "no-stage2", false, "force reranking off")
	queryCmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 uses the preset)")
	queryCmd.Flags().StringVar(&fusion, "fusion", "", "fusion method: weighted_sum, reciprocal_rank_fusion, comb_sum, adaptive")
	queryCmd.Flags().BoolVar(&rawJSON, "json", false, "print the raw JSON response")
	queryCmd.Flags().BoolVar(&showContent, "content", false, "print result content, not just IDs and scores")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(healthCmd)
}

type searchRequest struct {
	Query        string   `json:"query"`
	DocumentIDs  []string `json:"documentIds,omitempty"`
	UserID       string   `json:"userId,omitempty"`
	Preset       string   `json:"preset,omitempty"`
	FinalLimit   *int     `json:"finalLimit,omitempty"`
	FusionMethod *string  `json:"fusionMethod,omitempty"`
	EnableStage2 *bool    `json:"enableStage2,omitempty"`
}

type searchResult struct {
	ID              string   `json:"id"`
	Content         string   `json:"content"`
	DocumentID      string   `json:"document_id"`
	HybridScore     float64  `json:"hybrid_score"`
	RerankScore     *float64 `json:"rerank_score"`
	ConfidenceScore float64  `json:"confidence_score"`
	FinalRank       int      `json:"final_rank"`
}

type searchResponse struct {
	Results     []searchResult `json:"results"`
	Performance struct {
		Stage1LatencyMs int64 `json:"stage1_latency_ms"`
		Stage2LatencyMs int64 `json:"stage2_latency_ms"`
		TotalLatencyMs  int64 `json:"total_latency_ms"`
	} `json:"performance"`
	Metadata struct {
		Stage1Method string `json:"stage1_method"`
		Stage2Method string `json:"stage2_method"`
	} `json:"metadata"`
	Degraded bool `json:"degraded"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	req := searchRequest{
		Query:       args[0],
		DocumentIDs: documents,
		UserID:      userID,
		Preset:      preset,
	}
	if limit > 0 {
		req.FinalLimit = &limit
	}
	if fusion != "" {
		req.FusionMethod = &fusion
	}
	if stage2 && noStage2 {
		return fmt.Errorf("--stage2 and --no-stage2 are mutually exclusive")
	}
	if stage2 {
		enabled := true
		req.EnableStage2 = &enabled
	}
	if noStage2 {
		enabled := false
		req.EnableStage2 = &enabled
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(strings.TrimRight(serverURL, "/")+"/v1/search", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if rawJSON {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, body, "", "  "); err != nil {
			fmt.Println(string(body))
			return nil
		}
		fmt.Println(pretty.String())
		return nil
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	printResults(result)
	return nil
}

func printResults(result searchResponse) {
	if result.Degraded {
		fmt.Println("warning: reranking unavailable, results use stage-1 scores only")
	}

	for _, r := range result.Results {
		rerank := "-"
		if r.RerankScore != nil {
			rerank = fmt.Sprintf("%.4f", *r.RerankScore)
		}
		fmt.Printf("%3d. %-24s doc=%-16s hybrid=%.4f rerank=%s confidence=%.4f\n",
			r.FinalRank, r.ID, r.DocumentID, r.HybridScore, rerank, r.ConfidenceScore)
		if showContent {
			content := r.Content
			if len(content) > 200 {
				content = content[:200] + "..."
			}
			fmt.Printf("     %s\n", content)
		}
	}

	fmt.Printf("\n%d results in %dms (stage1=%dms stage2=%dms, fusion=%s, rerank=%s)\n",
		len(result.Results), result.Performance.TotalLatencyMs,
		result.Performance.Stage1LatencyMs, result.Performance.Stage2LatencyMs,
		result.Metadata.Stage1Method, result.Metadata.Stage2Method)
}

func checkHealth(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(strings.TrimRight(serverURL, "/") + "/v1/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	fmt.Println("ok")
	return nil
}
