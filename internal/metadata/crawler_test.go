package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/arnstad/hugin/internal/testutil"
)

func testClient() *Client {
	return NewClient(2 * time.Second)
}

func TestCrawl_CollectsAllLeaves(t *testing.T) {
	fake := testutil.NewFakeMetadata(t, map[string]any{
		"instance-id":   "i-1234",
		"instance-type": "t1.micro",
		"placement": map[string]any{
			"availability-zone": "eu-west-1a",
		},
		"network": map[string]any{
			"interfaces": map[string]any{
				"device-index": "0",
			},
		},
	}, "", "")

	c := NewCrawler(testClient(), fake.BaseURI(), nil)
	raw := c.Crawl(context.Background())

	if len(raw) != 4 {
		t.Fatalf("len(raw) = %d, want 4: %v", len(raw), raw)
	}
	if got := raw[fake.BaseURI()+"placement/availability-zone"]; got != "eu-west-1a" {
		t.Errorf("availability-zone = %q", got)
	}
	if got := raw[fake.BaseURI()+"network/interfaces/device-index"]; got != "0" {
		t.Errorf("device-index = %q", got)
	}
}

func TestCrawl_NoDirectoryEntries(t *testing.T) {
	fake := testutil.NewFakeMetadata(t, map[string]any{
		"placement": map[string]any{
			"availability-zone": "us-east-1a",
		},
	}, "", "")

	c := NewCrawler(testClient(), fake.BaseURI(), nil)
	raw := c.Crawl(context.Background())

	for uri := range raw {
		if uri[len(uri)-1] == '/' {
			t.Errorf("directory URI stored as entry: %s", uri)
		}
	}
	if len(raw) != 1 {
		t.Errorf("len(raw) = %d, want 1", len(raw))
	}
}

func TestCrawl_SecurityGroupsJoined(t *testing.T) {
	fake := testutil.NewFakeMetadata(t, map[string]any{
		"security-groups": "sg-a\nsg-b\nsg-c",
	}, "", "")

	c := NewCrawler(testClient(), fake.BaseURI(), nil)
	raw := c.Crawl(context.Background())

	if got := raw[fake.BaseURI()+"security-groups"]; got != "sg-a,sg-b,sg-c" {
		t.Errorf("security-groups = %q, want %q", got, "sg-a,sg-b,sg-c")
	}
}

func TestCrawl_UnreachableEndpointYieldsEmptyTable(t *testing.T) {
	c := NewCrawler(NewClient(200*time.Millisecond), "http://127.0.0.1:1/meta-data/", nil)
	raw := c.Crawl(context.Background())
	if len(raw) != 0 {
		t.Errorf("len(raw) = %d, want 0", len(raw))
	}
}

func TestCrawl_CancelledContextStopsEarly(t *testing.T) {
	fake := testutil.NewFakeMetadata(t, map[string]any{
		"instance-id": "i-1234",
	}, "", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCrawler(testClient(), fake.BaseURI(), nil)
	raw := c.Crawl(ctx)
	if len(raw) != 0 {
		t.Errorf("len(raw) = %d, want 0 after cancel", len(raw))
	}
}

func TestJoinURI(t *testing.T) {
	if got := joinURI("http://h/meta/", "a"); got != "http://h/meta/a" {
		t.Errorf("joinURI with trailing slash = %q", got)
	}
	if got := joinURI("http://h/meta", "a"); got != "http://h/meta/a" {
		t.Errorf("joinURI without trailing slash = %q", got)
	}
}
