package repository

import (
	"context"
	"testing"

	"github.com/lewtec/apontador/internal/domain"
)

func repositories(t *testing.T) map[string]domain.AnnotationRepository {
	t.Helper()
	csvRepo, _ := NewTestCSVRepository(t)
	return map[string]domain.AnnotationRepository{
		"sql": NewTestSQLRepository(t),
		"csv": csvRepo,
	}
}

func itemIDs(anns []domain.Annotation) []string {
	ids := make([]string, len(anns))
	for i, ann := range anns {
		ids[i] = ann.ItemID
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAnnotationRepository_Upsert(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("creates annotation successfully", func(t *testing.T) {
				if err := repo.Upsert(ctx, "nam", "A", 20, 10); err != nil {
					t.Fatalf("Upsert() error = %v", err)
				}
				anns, err := repo.List(ctx, "nam")
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if len(anns) != 1 {
					t.Fatalf("Got %d annotations, want 1", len(anns))
				}
				want := domain.Annotation{RaterID: "nam", ItemID: "A", X: 20, Y: 10}
				if anns[0] != want {
					t.Errorf("List()[0] = %+v, want %+v", anns[0], want)
				}
			})

			t.Run("upserts existing annotation in place", func(t *testing.T) {
				repo.Upsert(ctx, "nam", "B", 1, 1)
				repo.Upsert(ctx, "nam", "C", 2, 2)
				if err := repo.Upsert(ctx, "nam", "A", 30, 40); err != nil {
					t.Fatalf("Upsert() error = %v", err)
				}
				anns, _ := repo.List(ctx, "nam")
				if !equalIDs(itemIDs(anns), []string{"A", "B", "C"}) {
					t.Errorf("order = %v, want [A B C]", itemIDs(anns))
				}
				if anns[0].X != 30 || anns[0].Y != 40 {
					t.Errorf("A = (%d, %d), want (30, 40)", anns[0].X, anns[0].Y)
				}
			})

			t.Run("keeps raters apart", func(t *testing.T) {
				repo.Upsert(ctx, "shin", "A", 5, 5)
				anns, _ := repo.List(ctx, "shin")
				if len(anns) != 1 || anns[0].RaterID != "shin" {
					t.Errorf("List(shin) = %+v", anns)
				}
				nam, _ := repo.List(ctx, "nam")
				if len(nam) != 3 {
					t.Errorf("List(nam) has %d annotations, want 3", len(nam))
				}
			})
		})
	}
}

func TestAnnotationRepository_Delete(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo.Upsert(ctx, "nam", "A", 1, 1)
			repo.Upsert(ctx, "nam", "B", 2, 2)
			repo.Upsert(ctx, "shin", "B", 3, 3)

			if err := repo.Delete(ctx, "nam", "B"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			anns, _ := repo.List(ctx, "nam")
			if !equalIDs(itemIDs(anns), []string{"A"}) {
				t.Errorf("List(nam) = %v, want [A]", itemIDs(anns))
			}
			shin, _ := repo.List(ctx, "shin")
			if len(shin) != 1 {
				t.Errorf("Delete() touched another rater: %+v", shin)
			}

			t.Run("deleting a missing item is not an error", func(t *testing.T) {
				if err := repo.Delete(ctx, "nam", "missing"); err != nil {
					t.Errorf("Delete() error = %v", err)
				}
			})
		})
	}
}

func TestAnnotationRepository_DeleteAll(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo.Upsert(ctx, "nam", "A", 1, 1)
			repo.Upsert(ctx, "nam", "B", 2, 2)
			repo.Upsert(ctx, "shin", "A", 3, 3)

			if err := repo.DeleteAll(ctx, "nam"); err != nil {
				t.Fatalf("DeleteAll() error = %v", err)
			}
			anns, err := repo.List(ctx, "nam")
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(anns) != 0 {
				t.Errorf("List(nam) = %+v, want empty", anns)
			}
			raters, err := repo.Raters(ctx)
			if err != nil {
				t.Fatalf("Raters() error = %v", err)
			}
			if !equalIDs(raters, []string{"shin"}) {
				t.Errorf("Raters() = %v, want [shin]", raters)
			}
		})
	}
}

func TestAnnotationRepository_ListEmpty(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			anns, err := repo.List(context.Background(), "nobody")
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(anns) != 0 {
				t.Errorf("List() = %+v, want empty", anns)
			}
		})
	}
}

func TestSQLRepository_UniquePair(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	repo := NewSQLRepository(db, DialectSQLite)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Upsert(ctx, "nam", "A", i, i*2); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	count, err := repo.CountByRater(ctx, "nam")
	if err != nil {
		t.Fatalf("CountByRater() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountByRater() = %d, want 1", count)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO annotations (rater_id, item_id, click_x, click_y) VALUES ('nam', 'A', 1, 1)`)
	if err == nil {
		t.Error("Expected unique constraint violation for duplicated (rater, item)")
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM annotations WHERE rater_id = ? AND item_id = ?"
	if got := rebind(DialectSQLite, q); got != q {
		t.Errorf("rebind(sqlite) = %s", got)
	}
	want := "SELECT * FROM annotations WHERE rater_id = $1 AND item_id = $2"
	if got := rebind(DialectPostgres, q); got != want {
		t.Errorf("rebind(postgres) = %s, want %s", got, want)
	}
}
