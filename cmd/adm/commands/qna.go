package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"devlense/internal/observability"
	"devlense/internal/services"
	contextutils "devlense/internal/utils"

	"github.com/spf13/cobra"
)

// QnACommands returns the commands for reading and answering member questions
func QnACommands(qnaService services.QnAServiceInterface, logger *observability.Logger) *cobra.Command {
	qnaCmd := &cobra.Command{
		Use:   "qna",
		Short: "Read and answer member questions",
	}

	qnaCmd.AddCommand(listQuestionsCmd(qnaService))
	qnaCmd.AddCommand(answerQuestionCmd(qnaService, logger))

	return qnaCmd
}

func listQuestionsCmd(qnaService services.QnAServiceInterface) *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List questions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			questions, err := qnaService.ListNewestFirst(context.Background())
			if err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tUSER\tASKED\tQUESTION\tANSWER")
			shown := 0
			for _, q := range questions {
				if pendingOnly && !q.IsPending() {
					continue
				}
				answer := "(pending)"
				if !q.IsPending() {
					answer = q.Answer.String
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", q.ID, q.UserID, q.CreatedAt.Format("2006-01-02 15:04"), cell(q.Question), cell(answer))
				shown++
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d question(s)\n", shown)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only show unanswered questions")

	return cmd
}

func answerQuestionCmd(qnaService services.QnAServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "answer <id> <answer...>",
		Short: "Answer a question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return contextutils.ErrorWithContextf("invalid question id %q", args[0])
			}
			answer := strings.TrimSpace(strings.Join(args[1:], " "))
			if answer == "" {
				return contextutils.ErrorWithContextf("answer cannot be empty")
			}

			question, err := qnaService.Answer(ctx, id, answer)
			if err != nil {
				logger.Error(ctx, "Failed to answer question", err, map[string]interface{}{"question_id": id})
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Answered question %d\n", question.ID)
			return nil
		},
	}
}
