// Package bshr embeds the brainstorm, search, hypothesize, refine pipeline in
// a Go program without running the HTTP service.
//
// A topic is expanded into search queries, each query is looked up in an
// encyclopedia and a web metasearch engine, every hit becomes a hypothesis,
// and the hypotheses are merged pairwise until one is left. The survivor
// seeds the final answer.
//
//	client, _ := bshr.New(ctx,
//	    bshr.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "", ""),
//	    bshr.WithSearx("http://localhost:8888/search"),
//	    bshr.WithValkey("localhost:6379", ""), // optional cache
//	)
//	defer client.Close()
//	rep, _ := client.Answer(ctx, "benefits of sleep")
//	fmt.Println(rep.Answer)
//
// Any OpenAI-compatible endpoint works. To plug in another model, implement
// Completer and pass it with WithCompleter.
package bshr
