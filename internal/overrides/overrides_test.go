package overrides_test

import (
	"strings"
	"testing"

	"nemoctl/internal/overrides"
)

func TestSetRendersEachKeyOnce(t *testing.T) {
	set := overrides.New()
	set.SetInt("trainer.gpus", 4)
	set.Set("model.encoder_tokenizer.library", "yttm")
	set.SetInt("trainer.gpus", 1)

	rendered := set.String()
	if got := strings.Count(rendered, "trainer.gpus="); got != 1 {
		t.Fatalf("expected trainer.gpus rendered once, got %d in %q", got, rendered)
	}
	if !strings.Contains(rendered, "trainer.gpus=1") {
		t.Fatalf("expected last assignment to win, got %q", rendered)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 overrides, got %d", set.Len())
	}
}

func TestSetPreservesInsertionOrder(t *testing.T) {
	set := overrides.New()
	set.Set("model.train_ds.src_file_name", "/data/train.en")
	set.Set("model.train_ds.tgt_file_name", "/data/train.de")
	set.SetBool("exp_manager.create_wandb_logger", true)

	args := set.Args()
	want := []string{
		"model.train_ds.src_file_name=/data/train.en",
		"model.train_ds.tgt_file_name=/data/train.de",
		"exp_manager.create_wandb_logger=true",
	}
	if len(args) != len(want) {
		t.Fatalf("unexpected arg count: %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestArgsQuotesValuesWithWhitespace(t *testing.T) {
	set := overrides.New()
	set.Set("exp_manager.wandb_logger_kwargs.name", "nmt en-de run 7")

	args := set.Args()
	if args[0] != "exp_manager.wandb_logger_kwargs.name='nmt en-de run 7'" {
		t.Fatalf("unexpected quoting: %q", args[0])
	}
}

func TestParse(t *testing.T) {
	set, err := overrides.Parse([]string{"trainer.max_steps=150000", "model.preproc_out_dir=/results/preproc"})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if value, ok := set.Get("trainer.max_steps"); !ok || value != "150000" {
		t.Fatalf("unexpected parsed value: %q ok=%v", value, ok)
	}

	if _, err := overrides.Parse([]string{"no-equals"}); err == nil {
		t.Fatal("expected error for word without '='")
	}
	if _, err := overrides.Parse([]string{"=value"}); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestMerge(t *testing.T) {
	base := overrides.New()
	base.SetInt("trainer.gpus", 1)
	base.Set("model.beam_size", "4")

	extra := overrides.New()
	extra.SetInt("trainer.gpus", 8)
	extra.Set("model.len_pen", "0.6")

	base.Merge(extra)
	if value, _ := base.Get("trainer.gpus"); value != "8" {
		t.Fatalf("expected merged gpus value 8, got %q", value)
	}
	keys := base.Keys()
	if keys[0] != "trainer.gpus" || keys[2] != "model.len_pen" {
		t.Fatalf("unexpected key ordering after merge: %v", keys)
	}
}
