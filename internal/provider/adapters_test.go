package provider_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/docgate/docgate/internal/provider"
	"github.com/docgate/docgate/pkg/types"
)

var _ = Describe("Adapters against a mock vendor", func() {
	for _, vc := range vendorCases {
		Describe(vc.ID, func() {
			var (
				ctx      context.Context
				mock     *MockVendorServer
				adapter  provider.Provider
				cfg      *types.ProviderConfig
				progress []string
				record   types.ProgressFunc
			)

			BeforeEach(func() {
				ctx = context.Background()
				mock = NewMockVendorServer()

				registry := provider.InitializeProviders(&http.Client{Timeout: 30 * time.Second})
				var err error
				adapter, err = registry.Get(vc.ID)
				Expect(err).NotTo(HaveOccurred())

				cfg = &types.ProviderConfig{
					BaseURL: vc.BaseURL(mock.URL()),
					APIKey:  "test-key",
					Model:   vc.Model,
					Stream:  true,
				}
				progress = nil
				record = func(delta string) { progress = append(progress, delta) }
			})

			AfterEach(func() {
				mock.Close()
			})

			streamOf := func(texts ...string) []string {
				events := vc.Deltas(texts...)
				return append(events, vc.End...)
			}

			Describe("Summarize", func() {
				It("streams deltas and returns the aggregated text", func() {
					mock.Reply(MockReply{Events: streamOf("Hel", "lo ", "world")})

					text, err := adapter.Summarize(ctx, &provider.SummarizeRequest{
						Content: "document body",
						Prompt:  "Summarize",
					}, cfg, record)

					Expect(err).NotTo(HaveOccurred())
					Expect(text).To(Equal("Hello world"))
					Expect(strings.Join(progress, "")).To(Equal(text))
				})

				It("sends the vendor endpoint and credentials", func() {
					mock.Reply(MockReply{Events: streamOf("ok")})

					_, err := adapter.Summarize(ctx, &provider.SummarizeRequest{Content: "doc", Prompt: "p"}, cfg, nil)
					Expect(err).NotTo(HaveOccurred())

					req := mock.LastRequest()
					Expect(req.Method).To(Equal(http.MethodPost))
					Expect(req.Path).To(Equal(vc.StreamPath))
					Expect(req.RawQuery).To(Equal(vc.StreamQuery))
					Expect(req.Header.Get(vc.AuthHeader)).To(Equal(vc.AuthValue("test-key")))
					Expect(req.Header.Get("Content-Type")).To(Equal("application/json"))
					Expect(req.Header.Get("Accept")).To(Equal("text/event-stream"))
					Expect(string(req.Body)).To(ContainSubstring(`p\n\ndoc`))
				})

				It("embeds base64 documents as file parts", func() {
					mock.Reply(MockReply{Events: streamOf("ok")})
					payload := base64.StdEncoding.EncodeToString([]byte("%PDF-1.7"))

					_, err := adapter.Summarize(ctx, &provider.SummarizeRequest{
						Content:   payload,
						IsEncoded: true,
						Prompt:    "Summarize",
					}, cfg, nil)
					Expect(err).NotTo(HaveOccurred())

					body := string(mock.LastRequest().Body)
					Expect(body).To(ContainSubstring(payload))
					Expect(body).To(ContainSubstring("application/pdf"))
				})

				It("returns the partial text when the vendor aborts after output", func() {
					events := vc.Deltas("A", "B")
					events = append(events, vc.Fault)
					events = append(events, vc.Deltas("C")...)
					mock.Reply(MockReply{Events: events})

					text, err := adapter.Summarize(ctx, &provider.SummarizeRequest{Content: "doc", Prompt: "p"}, cfg, record)
					Expect(err).NotTo(HaveOccurred())
					Expect(text).To(Equal("AB"))
					Expect(progress).To(Equal([]string{"A", "B"}))
				})

				It("returns the partial text when the connection drops", func() {
					mock.Reply(MockReply{Events: vc.Deltas("A", "B"), Drop: true})

					text, err := adapter.Summarize(ctx, &provider.SummarizeRequest{Content: "doc", Prompt: "p"}, cfg, nil)
					Expect(err).NotTo(HaveOccurred())
					Expect(text).To(Equal("AB"))
				})

				It("returns the partial text when the deadline passes mid-stream", func() {
					mock.Reply(MockReply{Events: vc.Deltas("A", "B"), Hang: true})
					deadline, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
					defer cancel()

					start := time.Now()
					text, err := adapter.Summarize(deadline, &provider.SummarizeRequest{Content: "doc", Prompt: "p"}, cfg, record)
					Expect(err).NotTo(HaveOccurred())
					Expect(text).To(Equal("AB"))
					Expect(progress).To(Equal([]string{"A", "B"}))
					Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
				})

				It("raises a deadline transport error when nothing was streamed in time", func() {
					mock.Reply(MockReply{Events: []string{": keep-alive"}, Hang: true})
					deadline, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
					defer cancel()

					_, err := adapter.Summarize(deadline, &provider.SummarizeRequest{Content: "doc", Prompt: "p"}, cfg, nil)
					var transportErr *provider.TransportError
					Expect(errors.As(err, &transportErr)).To(BeTrue())
					Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
				})

				It("raises the vendor error when nothing was streamed", func() {
					mock.Reply(MockReply{Status: http.StatusInternalServerError, Body: vc.ErrorBody})

					_, err := adapter.Summarize(ctx, &provider.SummarizeRequest{Content: "doc", Prompt: "p"}, cfg, nil)
					var apiErr *provider.APIError
					Expect(errors.As(err, &apiErr)).To(BeTrue())
					Expect(apiErr.StatusCode).To(Equal(http.StatusInternalServerError))
					Expect(apiErr.Code).To(Equal(vc.FaultCode))
					Expect(apiErr.Message).To(Equal("boom"))
				})

				It("raises an in-band error when nothing was streamed", func() {
					mock.Reply(MockReply{Events: []string{vc.Fault}})

					_, err := adapter.Summarize(ctx, &provider.SummarizeRequest{Content: "doc", Prompt: "p"}, cfg, nil)
					var apiErr *provider.APIError
					Expect(errors.As(err, &apiErr)).To(BeTrue())
					Expect(apiErr.Code).To(Equal(vc.FaultCode))
				})

				It("skips malformed records", func() {
					events := append([]string{"data: {not valid json"}, streamOf("ok")...)
					mock.Reply(MockReply{Events: events})

					text, err := adapter.Summarize(ctx, &provider.SummarizeRequest{Content: "doc", Prompt: "p"}, cfg, nil)
					Expect(err).NotTo(HaveOccurred())
					Expect(text).To(Equal("ok"))
				})

				It("uses a single JSON reply when streaming is off", func() {
					cfg.Stream = false
					mock.Reply(MockReply{Body: vc.Blocking})

					text, err := adapter.Summarize(ctx, &provider.SummarizeRequest{Content: "doc", Prompt: "p"}, cfg, record)
					Expect(err).NotTo(HaveOccurred())
					Expect(text).To(Equal("pong"))
					Expect(progress).To(Equal([]string{"pong"}))
					Expect(mock.LastRequest().Path).To(Equal(vc.BlockingPath))
				})

				It("fails fast without an API key", func() {
					cfg.APIKey = ""

					_, err := adapter.Summarize(ctx, &provider.SummarizeRequest{Content: "doc", Prompt: "p"}, cfg, nil)
					Expect(errors.Is(err, types.ErrConfiguration)).To(BeTrue())
					Expect(mock.Requests()).To(BeEmpty())
				})
			})

			Describe("Chat", func() {
				conversation := []types.ConversationMessage{
					{Role: types.RoleSystem, Content: "Be brief."},
					{Role: types.RoleUser, Content: "Summarize the document"},
					{Role: types.RoleAssistant, Content: "It is about tests."},
					{Role: types.RoleUser, Content: "Which tests?"},
				}

				It("streams the reply", func() {
					mock.Reply(MockReply{Events: streamOf("Unit ", "tests.")})

					text, err := adapter.Chat(ctx, &provider.ChatRequest{
						DocumentContent: "doc",
						Conversation:    conversation,
					}, cfg, record)
					Expect(err).NotTo(HaveOccurred())
					Expect(text).To(Equal("Unit tests."))
					Expect(strings.Join(progress, "")).To(Equal(text))

					body := string(mock.LastRequest().Body)
					Expect(body).To(ContainSubstring("Be brief."))
					Expect(body).To(ContainSubstring("Which tests?"))
				})

				It("applies the documented partial-result policy on vendor aborts", func() {
					events := append(vc.Deltas("A", "B"), vc.Fault)
					mock.Reply(MockReply{Events: events})

					text, err := adapter.Chat(ctx, &provider.ChatRequest{DocumentContent: "doc", Conversation: conversation}, cfg, nil)
					switch vc.ChatPolicy {
					case "abort-first":
						var apiErr *provider.APIError
						Expect(errors.As(err, &apiErr)).To(BeTrue())
						Expect(apiErr.Code).To(Equal(vc.FaultCode))
						Expect(text).To(BeEmpty())
					default:
						Expect(err).NotTo(HaveOccurred())
						Expect(text).To(Equal("AB"))
					}
				})

				It("falls back to partial text on transport failures", func() {
					mock.Reply(MockReply{Events: vc.Deltas("A", "B"), Drop: true})

					text, err := adapter.Chat(ctx, &provider.ChatRequest{DocumentContent: "doc", Conversation: conversation}, cfg, nil)
					Expect(err).NotTo(HaveOccurred())
					Expect(text).To(Equal("AB"))
				})

				It("falls back to partial text when the deadline passes mid-stream", func() {
					mock.Reply(MockReply{Events: vc.Deltas("A", "B"), Hang: true})
					deadline, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
					defer cancel()

					// A timeout is a transport error, so abort-first adapters fall back too.
					text, err := adapter.Chat(deadline, &provider.ChatRequest{DocumentContent: "doc", Conversation: conversation}, cfg, nil)
					Expect(err).NotTo(HaveOccurred())
					Expect(text).To(Equal("AB"))
				})

				It("rejects an empty conversation", func() {
					_, err := adapter.Chat(ctx, &provider.ChatRequest{DocumentContent: "doc"}, cfg, nil)
					Expect(err).To(MatchError(provider.ErrEmptyConversation))
					Expect(mock.Requests()).To(BeEmpty())
				})

				It("fails fast without a base URL", func() {
					cfg.BaseURL = ""

					_, err := adapter.Chat(ctx, &provider.ChatRequest{Conversation: conversation}, cfg, nil)
					Expect(errors.Is(err, types.ErrConfiguration)).To(BeTrue())
					Expect(mock.Requests()).To(BeEmpty())
				})
			})

			Describe("TestConnection", func() {
				It("reports the reply and raw body", func() {
					mock.Reply(MockReply{Body: vc.Blocking})

					report, err := adapter.TestConnection(ctx, cfg)
					Expect(err).NotTo(HaveOccurred())
					Expect(report).To(ContainSubstring("Reply: pong"))
					Expect(report).To(ContainSubstring(vc.Blocking))

					req := mock.LastRequest()
					Expect(req.Path).To(Equal(vc.BlockingPath))
					Expect(string(req.Body)).To(ContainSubstring("ping"))
					Expect(string(req.Body)).To(ContainSubstring("16"))
					Expect(req.JSON()).NotTo(HaveKey("stream"))
				})

				It("returns diagnostics instead of partial output", func() {
					mock.Reply(MockReply{
						Status:  http.StatusInternalServerError,
						Body:    vc.ErrorBody,
						Headers: map[string]string{"X-Request-Id": "req-123"},
					})

					_, err := adapter.TestConnection(ctx, cfg)
					var diag *provider.ConnectivityTestError
					Expect(errors.As(err, &diag)).To(BeTrue())
					Expect(diag.Name).To(Equal(vc.FaultCode))
					Expect(diag.Message).To(Equal("boom"))
					Expect(diag.StatusCode).To(Equal(http.StatusInternalServerError))
					Expect(diag.RequestURL).To(HavePrefix(mock.URL() + vc.BlockingPath))
					Expect(diag.RequestBody).To(ContainSubstring("ping"))
					Expect(diag.ResponseHeaders).To(HaveKeyWithValue("x-request-id", "req-123"))
					Expect(diag.ResponseBody).To(Equal(vc.ErrorBody))
					Expect(diag.Details()).To(ContainSubstring("Request URL: " + diag.RequestURL))
				})

				It("names unparseable failures after the status", func() {
					mock.Reply(MockReply{Status: http.StatusBadGateway, Body: "<html>bad gateway</html>"})

					_, err := adapter.TestConnection(ctx, cfg)
					var diag *provider.ConnectivityTestError
					Expect(errors.As(err, &diag)).To(BeTrue())
					Expect(diag.Name).To(Equal("HTTP_502"))
				})

				It("reports network failures", func() {
					mock.Close()

					_, err := adapter.TestConnection(ctx, cfg)
					var diag *provider.ConnectivityTestError
					Expect(errors.As(err, &diag)).To(BeTrue())
					Expect(diag.Name).To(Equal("NetworkError"))
					Expect(diag.StatusCode).To(BeZero())
				})

				It("fails fast without an API key", func() {
					cfg.APIKey = ""

					_, err := adapter.TestConnection(ctx, cfg)
					Expect(errors.Is(err, types.ErrConfiguration)).To(BeTrue())
					Expect(mock.Requests()).To(BeEmpty())
				})
			})

			if vc.MultiFile {
				Describe("SummarizeMultiFile", func() {
					It("sends every file in one request", func() {
						dir := GinkgoT().TempDir()
						path := filepath.Join(dir, "notes.html")
						Expect(os.WriteFile(path, []byte("<p>plain notes</p>"), 0o644)).To(Succeed())
						inline := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))

						mock.Reply(MockReply{Events: streamOf("Two ", "files.")})

						multi, ok := adapter.(provider.MultiFileSummarizer)
						Expect(ok).To(BeTrue())
						text, err := multi.SummarizeMultiFile(ctx, []types.MultiFileInput{
							{Path: path},
							{Path: "report.pdf", Payload: inline},
						}, "Compare", cfg, record)
						Expect(err).NotTo(HaveOccurred())
						Expect(text).To(Equal("Two files."))

						body := string(mock.LastRequest().Body)
						Expect(body).To(ContainSubstring(base64.StdEncoding.EncodeToString([]byte("<p>plain notes</p>"))))
						Expect(body).To(ContainSubstring(inline))
						Expect(body).To(ContainSubstring("text/html"))
						Expect(body).To(ContainSubstring("Compare"))
					})

					It("fails fast without an API key", func() {
						cfg.APIKey = ""
						multi := adapter.(provider.MultiFileSummarizer)

						_, err := multi.SummarizeMultiFile(ctx, []types.MultiFileInput{{Path: "a.pdf", Payload: "AA=="}}, "p", cfg, nil)
						Expect(errors.Is(err, types.ErrConfiguration)).To(BeTrue())
						Expect(mock.Requests()).To(BeEmpty())
					})
				})
			} else {
				It("does not offer multi-file summaries", func() {
					_, ok := adapter.(provider.MultiFileSummarizer)
					Expect(ok).To(BeFalse())
				})
			}
		})
	}
})
