package director_test

import (
	"context"
	"errors"
	"testing"

	"showrunner/internal/canon"
	"showrunner/internal/director"
	"showrunner/internal/services"
	"showrunner/internal/store"
)

func validPlan(scenes int) *director.Plan {
	plan := &director.Plan{
		EpisodeNumber: 1,
		ArcSummary:    "the crew finds a derelict",
	}
	for i := 1; i <= scenes; i++ {
		plan.Scenes = append(plan.Scenes, director.ScenePlan{
			SceneInEpisode:   i,
			VideoPrompt:      "a wide shot",
			NarrativeSummary: "something happens",
		})
	}
	return plan
}

func TestValidatePlanAcceptsWellFormedPlan(t *testing.T) {
	if err := director.ValidatePlan(validPlan(6), 6); err != nil {
		t.Fatalf("ValidatePlan rejected a valid plan: %v", err)
	}
}

func TestValidatePlanRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*director.Plan)
	}{
		{"empty arc summary", func(p *director.Plan) { p.ArcSummary = "   " }},
		{"wrong scene count", func(p *director.Plan) { p.Scenes = p.Scenes[:5] }},
		{"out of order scenes", func(p *director.Plan) { p.Scenes[2].SceneInEpisode = 7 }},
		{"empty video prompt", func(p *director.Plan) { p.Scenes[0].VideoPrompt = "" }},
		{"empty narrative summary", func(p *director.Plan) { p.Scenes[4].NarrativeSummary = " " }},
		{"nameless character", func(p *director.Plan) {
			p.NewCharacters = []director.CharacterSpec{{Name: "  "}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := validPlan(6)
			tc.mutate(plan)
			err := director.ValidatePlan(plan, 6)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidatePlanRejectsNil(t *testing.T) {
	if err := director.ValidatePlan(nil, 6); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for nil plan, got %v", err)
	}
}

func TestMockPlannerFirstEpisodeIntroducesCast(t *testing.T) {
	planner := director.NewMockPlanner(6, 30)
	plan, err := planner.PlanEpisode(context.Background(), 1, &canon.Snapshot{})
	if err != nil {
		t.Fatalf("PlanEpisode failed: %v", err)
	}
	if err := director.ValidatePlan(plan, 6); err != nil {
		t.Fatalf("mock plan failed validation: %v", err)
	}
	if len(plan.NewCharacters) != 3 {
		t.Fatalf("expected 3 new characters on episode 1, got %d", len(plan.NewCharacters))
	}
	last := plan.Scenes[len(plan.Scenes)-1]
	if last.OpensThread == "" || last.ThreadPriority == 0 {
		t.Fatalf("expected final scene to open a thread: %#v", last)
	}
}

func TestMockPlannerLaterEpisodesReuseKnownCast(t *testing.T) {
	planner := director.NewMockPlanner(6, 30)
	snapshot := &canon.Snapshot{
		Characters: []*store.Character{
			{ID: "char_001", Name: "Captain Mara Voss"},
			{ID: "char_002", Name: "Juno"},
		},
	}
	plan, err := planner.PlanEpisode(context.Background(), 2, snapshot)
	if err != nil {
		t.Fatalf("PlanEpisode failed: %v", err)
	}
	if len(plan.NewCharacters) != 0 {
		t.Fatalf("episode 2 should not reintroduce the cast: %#v", plan.NewCharacters)
	}
	if len(plan.Scenes[0].Characters) != 2 {
		t.Fatalf("expected known cast on scenes, got %v", plan.Scenes[0].Characters)
	}
}

func TestMockPlannerIsDeterministic(t *testing.T) {
	planner := director.NewMockPlanner(6, 30)
	first, err := planner.PlanEpisode(context.Background(), 3, nil)
	if err != nil {
		t.Fatalf("PlanEpisode failed: %v", err)
	}
	second, err := planner.PlanEpisode(context.Background(), 3, nil)
	if err != nil {
		t.Fatalf("PlanEpisode failed: %v", err)
	}
	if first.ArcSummary != second.ArcSummary {
		t.Fatal("arc summaries differ between identical calls")
	}
	for i := range first.Scenes {
		if first.Scenes[i].VideoPrompt != second.Scenes[i].VideoPrompt {
			t.Fatalf("scene %d prompt differs between identical calls", i+1)
		}
	}
}

func TestDecodeModelJSONStripsCodeFences(t *testing.T) {
	var plan director.Plan
	content := "```json\n{\"episode_number\": 4, \"arc_summary\": \"a debt comes due\", \"scenes\": []}\n```"
	if err := director.DecodeModelJSON(content, &plan); err != nil {
		t.Fatalf("DecodeModelJSON failed: %v", err)
	}
	if plan.EpisodeNumber != 4 || plan.ArcSummary != "a debt comes due" {
		t.Fatalf("unexpected decode result: %#v", plan)
	}
}

func TestDecodeModelJSONExtractsEmbeddedObject(t *testing.T) {
	var plan director.Plan
	content := "Here is the plan you asked for:\n{\"episode_number\": 2, \"arc_summary\": \"s\", \"scenes\": []}\nLet me know if you need changes."
	if err := director.DecodeModelJSON(content, &plan); err != nil {
		t.Fatalf("DecodeModelJSON failed: %v", err)
	}
	if plan.EpisodeNumber != 2 {
		t.Fatalf("unexpected decode result: %#v", plan)
	}
}

func TestDecodeModelJSONRejectsGarbage(t *testing.T) {
	var plan director.Plan
	if err := director.DecodeModelJSON("the model refused to answer", &plan); err == nil {
		t.Fatal("expected decode error for non-JSON content")
	}
}
