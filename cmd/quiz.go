package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ripecheck/internal/quiz"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Show the ripeness quiz, or grade answers given with --answer",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		raw, _ := cmd.Flags().GetString("answer")
		if raw == "" {
			for _, q := range quiz.DefaultQuestions() {
				fmt.Fprintf(out, "%s. %s\n", q.ID, q.Prompt)
				for i, choice := range q.Choices {
					fmt.Fprintf(out, "   %s) %s\n", quiz.Letter(i), choice)
				}
			}
			fmt.Fprintln(out, "\nGrade with: ripecheck quiz --answer q1=a,q2=c,...")
			return nil
		}

		answers, err := quiz.ParseAnswers(raw)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, quiz.DefaultKey().Grade(answers))
		return nil
	},
}

func init() {
	quizCmd.Flags().String("answer", "", "Comma-separated answers, e.g. q1=b,q2=a")
}
