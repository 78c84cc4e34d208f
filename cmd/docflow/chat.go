package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/dukex/docflow/pkg/router"
	"github.com/dukex/docflow/pkg/web"
	"github.com/dukex/docflow/pkg/workflow"
	"github.com/urfave/cli/v3"
)

func runChat(ctx context.Context, command *cli.Command) error {
	return withStack(ctx, command, func(stack *cmd.Stack) error {
		return converse(ctx, stack.Router, bufio.NewScanner(os.Stdin), os.Stdout,
			command.String("session"), strings.Join(command.Args().Slice(), " "))
	})
}

// converse runs one conversation, prompting on in for as long as the workflow waits for a reply.
func converse(ctx context.Context, r *router.Router, in *bufio.Scanner, out io.Writer, sessionID, request string) error {
	if strings.TrimSpace(request) == "" {
		fmt.Fprint(out, "요청> ")

		line, ok := readLine(in)
		if !ok {
			return nil
		}

		request = line
	}

	resp, err := r.Run(ctx, request, sessionID)
	if err != nil {
		return err
	}

	printResponse(out, web.TransformChatResponse(resp, time.Now()))

	for resp.RequiresInterrupt {
		fmt.Fprint(out, "> ")

		reply, ok := readLine(in)
		if !ok {
			fmt.Fprintf(out, "\n세션 %s 은(는) 입력을 기다리고 있습니다. --session 으로 이어서 진행할 수 있습니다.\n", resp.SessionID)

			return nil
		}

		resp, err = r.Resume(ctx, resp.SessionID, reply, replyKind(resp))
		if err != nil {
			return err
		}

		printResponse(out, web.TransformResumeResponse(resp))
	}

	return nil
}

func readLine(in *bufio.Scanner) (string, bool) {
	for in.Scan() {
		if line := strings.TrimSpace(in.Text()); line != "" {
			return line, true
		}
	}

	return "", false
}

func replyKind(resp router.Response) workflow.ReplyKind {
	if resp.Result == nil {
		return workflow.ReplyUser
	}

	node, err := workflow.ParseNodeID(resp.Result.NextNode)
	if err != nil {
		return workflow.ReplyUser
	}

	return node.ReplyKind()
}

func printResponse(out io.Writer, resp web.ChatResponse) {
	if resp.Response != "" {
		fmt.Fprintln(out, resp.Response)
	}

	if options, ok := resp.Data["options"].([]web.Option); ok {
		for _, option := range options {
			fmt.Fprintf(out, "  %s. %s\n", option.Value, option.Label)
		}
	}

	if resp.Data["interrupt_type"] == "data_input" {
		if prompt, ok := resp.Data["prompt"].(string); ok && prompt != "" {
			fmt.Fprintln(out, prompt)
		}
	}

	for _, key := range []string{"document_path", "final_doc"} {
		if path, ok := resp.Data[key].(string); ok && path != "" {
			fmt.Fprintf(out, "문서: %s\n", path)
		}
	}

	if violations, ok := resp.Data["violations"].([]string); ok {
		for _, v := range violations {
			fmt.Fprintf(out, "  - %s\n", v)
		}
	}

	if resp.Error != "" {
		fmt.Fprintf(out, "오류: %s\n", resp.Error)
	}
}
