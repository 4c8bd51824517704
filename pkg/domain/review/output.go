// Package review holds the value types passed between the stages of a
// multi-model design review: per-model outputs, merged documents,
// suggestion lists, the review session and the refinement state machine.
package review

import "fmt"

// ModelOutput is the result of one model in a fan-out batch.
type ModelOutput struct {
	Model string
	Text  string
	Err   error
}

// Success builds a successful output.
func Success(model, text string) ModelOutput {
	return ModelOutput{Model: model, Text: text}
}

// Failure builds a tagged failure output.
func Failure(model string, err error) ModelOutput {
	return ModelOutput{Model: model, Err: err}
}

// OK reports whether the call succeeded.
func (o ModelOutput) OK() bool {
	return o.Err == nil
}

func (o ModelOutput) String() string {
	if o.Err != nil {
		return fmt.Sprintf("[model error] %s: %T: %v", o.Model, o.Err, o.Err)
	}
	return o.Text
}

// SuccessfulTexts returns the text of every successful output, in order.
func SuccessfulTexts(outputs []ModelOutput) []string {
	texts := make([]string, 0, len(outputs))
	for _, o := range outputs {
		if o.OK() {
			texts = append(texts, o.Text)
		}
	}
	return texts
}
