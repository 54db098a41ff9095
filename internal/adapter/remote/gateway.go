package remote

import (
	"context"
	"net/http"

	"lifesync/internal/domain"
)

// --- Nutrition ---

func (c *Client) FetchNutritionDay(ctx context.Context, date string) ([]domain.NutritionEntry, error) {
	body, err := c.do(ctx, domain.Request{Method: http.MethodGet, Endpoint: "/nutrition", Params: map[string]string{"date": date}})
	if err != nil {
		return nil, err
	}
	var out []domain.NutritionEntry
	if err := decodeList(body, "entries", &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Date == "" {
			out[i].Date = date
		}
		out[i].Synced = true
	}
	return out, nil
}

func (c *Client) AddNutritionEntry(ctx context.Context, e domain.NutritionEntry) (domain.NutritionEntry, error) {
	body, err := c.do(ctx, domain.AddNutritionEntry{Entry: e}.Request())
	if err != nil {
		return domain.NutritionEntry{}, err
	}
	out := e
	if _, err := decodeOne(body, "entry", &out); err != nil {
		return domain.NutritionEntry{}, err
	}
	out.Synced = true
	return out, nil
}

func (c *Client) DeleteNutritionEntry(ctx context.Context, id, date string) error {
	return c.Replay(ctx, domain.DeleteNutritionEntry{ID: id, Date: date}.Request())
}

// --- Fitness ---

func (c *Client) FetchFitnessWeek(ctx context.Context, week string) ([]domain.FitnessEntry, error) {
	body, err := c.do(ctx, domain.Request{Method: http.MethodGet, Endpoint: "/fitness", Params: map[string]string{"week": week}})
	if err != nil {
		return nil, err
	}
	var out []domain.FitnessEntry
	if err := decodeList(body, "entries", &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Synced = true
	}
	return out, nil
}

func (c *Client) AddFitnessEntry(ctx context.Context, e domain.FitnessEntry) (domain.FitnessEntry, error) {
	body, err := c.do(ctx, domain.AddFitnessEntry{Entry: e}.Request())
	if err != nil {
		return domain.FitnessEntry{}, err
	}
	out := e
	if _, err := decodeOne(body, "entry", &out); err != nil {
		return domain.FitnessEntry{}, err
	}
	out.Synced = true
	return out, nil
}

func (c *Client) DeleteFitnessEntry(ctx context.Context, id, week string) error {
	return c.Replay(ctx, domain.DeleteFitnessEntry{ID: id, Week: week}.Request())
}

// --- Budget ---

func (c *Client) FetchBudgetWeek(ctx context.Context, week string) ([]domain.BudgetEntry, error) {
	body, err := c.do(ctx, domain.Request{Method: http.MethodGet, Endpoint: "/budget", Params: map[string]string{"week": week}})
	if err != nil {
		return nil, err
	}
	var out []domain.BudgetEntry
	if err := decodeList(body, "entries", &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Synced = true
	}
	return out, nil
}

func (c *Client) AddBudgetEntry(ctx context.Context, e domain.BudgetEntry) (domain.BudgetEntry, error) {
	body, err := c.do(ctx, domain.AddBudgetEntry{Entry: e}.Request())
	if err != nil {
		return domain.BudgetEntry{}, err
	}
	out := e
	if _, err := decodeOne(body, "entry", &out); err != nil {
		return domain.BudgetEntry{}, err
	}
	out.Synced = true
	return out, nil
}

func (c *Client) DeleteBudgetEntry(ctx context.Context, id, week string) error {
	return c.Replay(ctx, domain.DeleteBudgetEntry{ID: id, Week: week}.Request())
}

// --- Goals ---

func (c *Client) FetchGoals(ctx context.Context) ([]domain.Goal, error) {
	body, err := c.do(ctx, domain.Request{Method: http.MethodGet, Endpoint: "/goals"})
	if err != nil {
		return nil, err
	}
	var out []domain.Goal
	if err := decodeList(body, "goals", &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Synced = true
	}
	return out, nil
}

func (c *Client) CreateGoal(ctx context.Context, g domain.Goal) (domain.Goal, error) {
	body, err := c.do(ctx, domain.CreateGoal{Goal: g}.Request())
	if err != nil {
		return domain.Goal{}, err
	}
	out := g
	if _, err := decodeOne(body, "goal", &out); err != nil {
		return domain.Goal{}, err
	}
	out.Synced = true
	return out, nil
}

func (c *Client) UpdateGoal(ctx context.Context, g domain.Goal) (domain.Goal, error) {
	body, err := c.do(ctx, domain.UpdateGoal{Goal: g}.Request())
	if err != nil {
		return domain.Goal{}, err
	}
	out := g
	if _, err := decodeOne(body, "goal", &out); err != nil {
		return domain.Goal{}, err
	}
	out.Synced = true
	return out, nil
}

func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	return c.Replay(ctx, domain.DeleteGoal{ID: id}.Request())
}
