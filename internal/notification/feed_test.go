package notification

import (
	"context"
	"fmt"
	"testing"

	"github.com/matryer/is"
)

func seededFeed(t *testing.T, count int) (*Feed, *fakeStore) {
	t.Helper()

	store := newFakeStore()
	for i := 1; i <= count; i++ {
		err := store.Add(context.Background(), &Notification{
			DeviceID:  "tank-1",
			Key:       fmt.Sprintf("%04d", i),
			Title:     "Refill Update",
			Type:      TypeRefill,
			Timestamp: int64(i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	return NewFeed(store, "tank-1"), store
}

func keys(notifications []Notification) []string {
	out := make([]string, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, n.Key)
	}
	return out
}

func TestFeedInitialPageIsNewestFirst(t *testing.T) {
	is := is.New(t)

	feed, _ := seededFeed(t, 25)

	page, err := feed.LoadPage(context.Background(), true)
	is.NoErr(err)
	is.Equal(keys(page), []string{
		"0025", "0024", "0023", "0022", "0021",
		"0020", "0019", "0018", "0017", "0016",
	})
	is.Equal(feed.Loaded(), 10)
}

func TestFeedPagesWalkBackwards(t *testing.T) {
	is := is.New(t)

	feed, _ := seededFeed(t, 25)
	ctx := context.Background()

	_, err := feed.LoadPage(ctx, true)
	is.NoErr(err)

	second, err := feed.LoadPage(ctx, false)
	is.NoErr(err)
	is.Equal(keys(second), []string{
		"0015", "0014", "0013", "0012", "0011",
		"0010", "0009", "0008", "0007", "0006",
	})

	third, err := feed.LoadPage(ctx, false)
	is.NoErr(err)
	is.Equal(keys(third), []string{"0005", "0004", "0003", "0002", "0001"})
	is.Equal(feed.Loaded(), 25)

	// past the start the feed returns empty pages from then on
	fourth, err := feed.LoadPage(ctx, false)
	is.NoErr(err)
	is.Equal(len(fourth), 0)

	fifth, err := feed.LoadPage(ctx, false)
	is.NoErr(err)
	is.Equal(len(fifth), 0)
}

func TestFeedInitialReloadResets(t *testing.T) {
	is := is.New(t)

	feed, _ := seededFeed(t, 12)
	ctx := context.Background()

	_, err := feed.LoadPage(ctx, true)
	is.NoErr(err)
	_, err = feed.LoadPage(ctx, false)
	is.NoErr(err)
	is.Equal(feed.Loaded(), 12)

	page, err := feed.LoadPage(ctx, true)
	is.NoErr(err)
	is.Equal(len(page), 10)
	is.Equal(page[0].Key, "0012")
	is.Equal(feed.Loaded(), 10)
}

func TestFeedLoadMoreBeforeInitialIsNoop(t *testing.T) {
	is := is.New(t)

	feed, _ := seededFeed(t, 5)

	page, err := feed.LoadPage(context.Background(), false)
	is.NoErr(err)
	is.Equal(len(page), 0)
	is.Equal(feed.Loaded(), 0)
}

func TestFeedUnreadAndMarkRead(t *testing.T) {
	is := is.New(t)

	feed, _ := seededFeed(t, 3)
	ctx := context.Background()

	count, err := feed.UnreadCount(ctx)
	is.NoErr(err)
	is.Equal(count, int64(3))

	is.NoErr(feed.MarkRead(ctx, "0002"))

	count, err = feed.UnreadCount(ctx)
	is.NoErr(err)
	is.Equal(count, int64(2))
}
