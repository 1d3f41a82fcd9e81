/*
Package chatdet classifies text by minimum description length. It trains one
character-level finite-context (order-k Markov) model per label, then labels
new text with whichever model codes it in the fewest bits.

Each model sees only the bytes of its alphabet; everything else is skipped and
does not advance the context. Probabilities are additively smoothed over the
alphabet:

	P(ev | ctx) = (count(ctx, ev) + α) / (count(ctx) + α·|alphabet|)

and a symbol costs -log2 P(ev | ctx) bits.


Usage

Configure and train, one model per label:

	trainer, err := chatdet.NewTrainer(chatdet.ModelConfig{
		Order:     5,
		Smoothing: 1,
		Alphabet:  chatdet.ASCIIAlnum,
	})
	err = trainer.AddString("human", "lots and lots of human text")
	err = trainer.AddString("machine", "lots and lots of generated text")
	paths, err := trainer.Save("models")

Or train from a CSV or JSONL source with "text" and "label" columns:

	rows, err := chatdet.NewCSVRows(f)
	err = trainer.AddRows(rows, "text", "label")

Approximate counting keeps stored counts logarithmic in the true count, which
keeps large models from overflowing:

	trainer, err := chatdet.NewTrainer(cfg,
		chatdet.TrainerApproximate(8, 64, 2),
		chatdet.TrainerRand(rand.New(rand.NewSource(1))))

Classify:

	ev, err := chatdet.LoadEvaluator(paths, false)
	p := ev.Predict("some text", false)
	fmt.Println(p.Label, p.Bits)

Score labelled data and print a confusion matrix:

	err = ev.EvaluateRows(rows, "text", "label", false)
	err = ev.Summary(os.Stdout)

The model file format has no magic number or version: a file written by an
approximate model must be read with approximate set, and vice versa.
*/
package chatdet
