// Command kikitorictl is a small CLI for driving a running kikitori
// server: submit text, list history, resume or remove items.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kikitori-app/kikitori-go/internal/client"
)

const usage = `usage: kikitorictl [flags] <command> [args]

commands:
  read <text>     synthesize text and activate a session ("-" reads stdin)
  history         list saved history items, most recent first
  resume <id>     re-activate a history item
  rm <id>         remove a history item
  health          check server health

flags:
`

func main() {
	addr := flag.String("addr", envOr("KIKITORI_ADDR", "http://localhost:8080"), "server base URL")
	token := flag.String("token", os.Getenv("KIKITORI_TOKEN"), "bearer token (empty disables auth)")
	voice := flag.String("voice", "", "voice override for read")
	timeout := flag.Duration("timeout", 60*time.Second, "request timeout")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*addr, *token)

	var err error
	switch args[0] {
	case "read":
		err = runRead(ctx, c, args[1:], *voice)
	case "history":
		err = runHistory(ctx, c)
	case "resume":
		err = runResume(ctx, c, args[1:])
	case "rm":
		err = runRemove(ctx, c, args[1:])
	case "health":
		err = c.Health(ctx)
		if err == nil {
			fmt.Println("ok")
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runRead(ctx context.Context, c *client.Client, args []string, voice string) error {
	if len(args) != 1 {
		return fmt.Errorf("read takes exactly one argument")
	}

	text := args[0]
	if text == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = strings.TrimSpace(string(raw))
	}

	sess, err := c.Read(ctx, text, voice)
	if err != nil {
		return err
	}

	fmt.Printf("session %s\n", sess.ID)
	fmt.Printf("  duration: %.2fs @ %d Hz\n", sess.DurationSeconds, sess.SampleRate)
	fmt.Printf("  segments: %d\n", len(sess.Segments))
	fmt.Printf("  audio:    %s\n", sess.AudioURL)
	return nil
}

func runHistory(ctx context.Context, c *client.Client) error {
	resp, err := c.History(ctx)
	if err != nil {
		return err
	}

	if len(resp.Items) == 0 {
		fmt.Println("history is empty")
		return nil
	}

	for _, item := range resp.Items {
		fmt.Printf("%s  %s  %s\n", item.ID, item.CreatedAt.Format(time.RFC3339), preview(item.Text))
	}
	return nil
}

func runResume(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("resume takes exactly one argument")
	}

	sess, err := c.Resume(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("session %s resumed at %.2fs (x%.1f, repeat %d)\n",
		sess.ID, sess.LastPosition, sess.PlaybackRate, sess.RepeatCount)
	return nil
}

func runRemove(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("rm takes exactly one argument")
	}

	if err := c.Remove(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("removed", args[0])
	return nil
}

// preview truncates text to one short line for history listings.
func preview(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) > 40 {
		return string(runes[:40]) + "..."
	}
	return text
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
