package quiz

// gradeAnswers marks each answer against its question. Every question id in
// answers must be present in questions.
func gradeAnswers(answers []Answer, questions map[int64]Question) ([]GradedAnswer, Outcome) {
	graded := make([]GradedAnswer, 0, len(answers))
	var out Outcome
	for _, a := range answers {
		correct := a.Text == questions[a.QuestionID].CorrectText()
		graded = append(graded, GradedAnswer{QuestionID: a.QuestionID, Text: a.Text, IsCorrect: correct})
		if correct {
			out.Correct++
		} else {
			out.Wrong++
		}
	}
	out.Total = len(answers)
	out.Grade = grade(out.Correct, out.Total)
	return graded, out
}

// grade is the percentage rounded half up, 0 for an empty submission. Integer
// arithmetic keeps exact halves such as 23/40 from rounding down.
func grade(correct, total int) int {
	if total == 0 {
		return 0
	}
	return (correct*200 + total) / (2 * total)
}
