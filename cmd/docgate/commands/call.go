package commands

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/docgate/docgate/internal/gateway"
	"github.com/docgate/docgate/internal/provider"
	"github.com/docgate/docgate/pkg/types"
)

const defaultPrompt = "Summarize this document."

// Flags shared by the commands that call a provider.
var (
	callProvider string
	callModel    string
	callNoStream bool
	callPrompt   string
	callEncode   bool
)

func addCallFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&callProvider, "provider", "P", "", "Provider ID (default: defaultProvider)")
	cmd.Flags().StringVarP(&callModel, "model", "m", "", "Model override")
	cmd.Flags().BoolVar(&callNoStream, "no-stream", false, "Wait for the full response instead of streaming")
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Analyze one document",
	Long: `Send one document with a prompt and print the answer as it streams.

The document is read from the file argument, or from stdin when the
argument is omitted or "-". Binary documents such as PDFs need --encode.

Examples:
  docgate summarize notes.md
  docgate summarize report.pdf --encode --provider gemini
  cat notes.md | docgate summarize --prompt "List the action items."`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Ask about a document in a multi-turn conversation",
	Long: `Continue a conversation about a document.

Earlier turns come from --conversation, a JSON array of
{"role":"user|assistant|system","content":"..."} objects. The message
arguments are appended as the final user turn.

Examples:
  docgate chat --document contract.pdf --encode "Who are the parties?"
  docgate chat --document notes.md --conversation history.json "And then?"`,
	RunE: runChat,
}

var filesCmd = &cobra.Command{
	Use:   "files <path|pattern>...",
	Short: "Analyze several documents in one request",
	Long: `Send several files in one request (openai, gemini and anthropic).

Arguments are paths or doublestar patterns; quote patterns so the
shell does not expand them.

Examples:
  docgate files a.pdf b.pdf --prompt "Compare these reports."
  docgate files 'reports/**/*.pdf' --provider anthropic`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFiles,
}

var testCmd = &cobra.Command{
	Use:   "test [provider]",
	Short: "Check credentials, endpoint and model of a provider",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTest,
}

var (
	chatDocument     string
	chatConversation string
	chatSystem       string
	chatTemperature  float32
)

func init() {
	addCallFlags(summarizeCmd)
	summarizeCmd.Flags().StringVarP(&callPrompt, "prompt", "p", defaultPrompt, "Instruction applied to the document")
	summarizeCmd.Flags().BoolVarP(&callEncode, "encode", "e", false, "Base64-encode the document (PDFs and other binaries)")

	addCallFlags(chatCmd)
	chatCmd.Flags().StringVarP(&chatDocument, "document", "d", "", "Document file")
	chatCmd.Flags().BoolVarP(&callEncode, "encode", "e", false, "Base64-encode the document")
	chatCmd.Flags().StringVar(&chatConversation, "conversation", "", "JSON file with earlier turns")
	chatCmd.Flags().StringVar(&chatSystem, "system", "", "System instruction")
	chatCmd.Flags().Float32Var(&chatTemperature, "temperature", 0, "Sampling temperature (default: configured)")

	addCallFlags(filesCmd)
	filesCmd.Flags().StringVarP(&callPrompt, "prompt", "p", defaultPrompt, "Instruction applied to the files")

	testCmd.Flags().StringVarP(&callModel, "model", "m", "", "Model override")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	if (path == "" || path == "-") && isTerminal(cmd.InOrStdin()) {
		return fmt.Errorf("no document: pass a file or pipe one on stdin")
	}
	content, err := readDocument(path, cmd.InOrStdin(), callEncode)
	if err != nil {
		return err
	}

	return withGateway(cmd, func(ctx context.Context, gw *gateway.Gateway, cfg *types.ProviderConfig, out types.ProgressFunc) (string, error) {
		return gw.Summarize(ctx, callProvider, &provider.SummarizeRequest{
			Content:   content,
			IsEncoded: callEncode,
			Prompt:    callPrompt,
		}, cfg, out)
	})
}

func runChat(cmd *cobra.Command, args []string) error {
	var document string
	if chatDocument != "" {
		var err error
		if document, err = readDocument(chatDocument, cmd.InOrStdin(), callEncode); err != nil {
			return err
		}
	}

	var history []byte
	if chatConversation != "" {
		var err error
		if history, err = os.ReadFile(chatConversation); err != nil {
			return fmt.Errorf("reading conversation: %w", err)
		}
	}
	conversation, err := buildConversation(chatSystem, history, strings.Join(args, " "))
	if err != nil {
		return err
	}

	a, err := bootstrap(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cm, err := a.gateway.ChatModel(callProvider, nil)
	if err != nil {
		return err
	}
	cm = cm.WithDocument(document, callEncode)

	var opts []model.Option
	if callModel != "" {
		opts = append(opts, model.WithModel(callModel))
	}
	if cmd.Flags().Changed("temperature") {
		opts = append(opts, model.WithTemperature(chatTemperature))
	}
	return reply(ctx, cmd.OutOrStdout(), cm, schemaMessages(conversation), !callNoStream, opts...)
}

// reply runs one chat turn through an Eino chat model and prints the
// answer, chunk by chunk when streaming.
func reply(ctx context.Context, out io.Writer, cm model.BaseChatModel, input []*schema.Message, streaming bool, opts ...model.Option) error {
	if !streaming {
		msg, err := cm.Generate(ctx, input, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, strings.TrimRight(msg.Content, "\n"))
		return nil
	}

	sr, err := cm.Stream(ctx, input, opts...)
	if err != nil {
		return err
	}
	defer sr.Close()

	var last string
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if last != "" {
				fmt.Fprintln(out)
			}
			return err
		}
		fmt.Fprint(out, msg.Content)
		if msg.Content != "" {
			last = msg.Content
		}
	}
	if !strings.HasSuffix(last, "\n") {
		fmt.Fprintln(out)
	}
	return nil
}

// schemaMessages converts a conversation to Eino messages.
func schemaMessages(conversation []types.ConversationMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(conversation))
	for _, m := range conversation {
		switch m.Role {
		case types.RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case types.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

func runFiles(cmd *cobra.Command, args []string) error {
	files, err := gateway.ExpandFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files match %s", strings.Join(args, " "))
	}

	return withGateway(cmd, func(ctx context.Context, gw *gateway.Gateway, cfg *types.ProviderConfig, out types.ProgressFunc) (string, error) {
		return gw.SummarizeMultiFile(ctx, callProvider, files, callPrompt, cfg, out)
	})
}

func runTest(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		callProvider = args[0]
	}

	return withGateway(cmd, func(ctx context.Context, gw *gateway.Gateway, cfg *types.ProviderConfig, _ types.ProgressFunc) (string, error) {
		return gw.TestConnection(ctx, callProvider, cfg)
	})
}

type callFunc func(ctx context.Context, gw *gateway.Gateway, cfg *types.ProviderConfig, out types.ProgressFunc) (string, error)

// withGateway runs call with SIGINT cancellation. Deltas are printed as
// they arrive; without any delta the final text is printed instead.
func withGateway(cmd *cobra.Command, call callFunc) error {
	a, err := bootstrap(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	streamed := false
	progress := func(delta string) {
		streamed = true
		fmt.Fprint(out, delta)
	}

	text, err := call(ctx, a.gateway, overrideConfig(a.gateway), progress)
	if err != nil {
		if streamed {
			fmt.Fprintln(out)
		}
		var testErr *provider.ConnectivityTestError
		if errors.As(err, &testErr) {
			return fmt.Errorf("%s", testErr.Details())
		}
		return err
	}

	if !streamed {
		fmt.Fprint(out, text)
	}
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(out)
	}
	return nil
}

// overrideConfig returns the configured options of the selected provider
// with the command line overrides applied, or nil when there are none
// or the provider is not configured.
func overrideConfig(gw *gateway.Gateway) *types.ProviderConfig {
	if callModel == "" && !callNoStream {
		return nil
	}
	id := callProvider
	if id == "" {
		id = gw.Config().DefaultProvider
	}
	cfg, ok := gw.Config().Provider[id]
	if !ok {
		return nil
	}
	if callModel != "" {
		cfg.Model = callModel
	}
	if callNoStream {
		cfg.Stream = false
	}
	return &cfg
}

// readDocument reads path, or r when path is empty or "-". With encode
// the bytes are returned base64-encoded.
func readDocument(path string, r io.Reader, encode bool) (string, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	if encode {
		return base64.StdEncoding.EncodeToString(data), nil
	}
	return string(data), nil
}

// isTerminal reports whether r is an interactive terminal, where
// reading a document would block on the keyboard.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// buildConversation assembles the turns of a chat command: an optional
// system instruction, the JSON history, then message as a user turn.
func buildConversation(system string, history []byte, message string) ([]types.ConversationMessage, error) {
	var conversation []types.ConversationMessage
	if system != "" {
		conversation = append(conversation, types.ConversationMessage{Role: types.RoleSystem, Content: system})
	}
	if len(history) > 0 {
		var earlier []types.ConversationMessage
		if err := json.Unmarshal(history, &earlier); err != nil {
			return nil, fmt.Errorf("invalid conversation: %w", err)
		}
		conversation = append(conversation, earlier...)
	}
	if message = strings.TrimSpace(message); message != "" {
		conversation = append(conversation, types.ConversationMessage{Role: types.RoleUser, Content: message})
	}
	if len(conversation) == 0 {
		return nil, fmt.Errorf("message required. Usage: docgate chat --document FILE \"your question\"")
	}
	return conversation, nil
}
