package store

import (
	"context"
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

// roundTrip pushes data through the same conversions a seed and a read take.
func roundTrip(t *testing.T, data string) json.RawMessage {
	t.Helper()
	v, err := jsonToBSON(json.RawMessage(data))
	if err != nil {
		t.Fatalf("jsonToBSON(%s): %v", data, err)
	}
	stored, err := bson.Marshal(record{Name: "dashboard", Data: v})
	if err != nil {
		t.Fatalf("bson.Marshal: %v", err)
	}
	rv, err := bson.Raw(stored).LookupErr("data")
	if err != nil {
		t.Fatalf("LookupErr: %v", err)
	}
	out, err := rawValueToJSON(rv)
	if err != nil {
		t.Fatalf("rawValueToJSON: %v", err)
	}
	return out
}

func TestMongoConversion_NestedDocument(t *testing.T) {
	in := `{"moisture":45,"temperature":26.5,"connected":true,"lastUpdate":"now",` +
		`"chartData":[{"time":"00:00","moisture":50,"temperature":22}],` +
		`"aiRecommendations":[{"title":"t","message":"m","color":"blue"}],` +
		`"waterSavings":{"week":18,"month":23,"totalLitersSaved":1240}}`
	out := roundTrip(t, in)
	if !jsonEqual(t, out, json.RawMessage(in)) {
		t.Errorf("round trip changed the document:\n in: %s\nout: %s", in, out)
	}
}

func TestMongoConversion_TopLevelArrayAndScalars(t *testing.T) {
	for _, in := range []string{`[1,2,{"a":[true,null]}]`, `"text"`, `3.25`, `12`, `false`} {
		out := roundTrip(t, in)
		if !jsonEqual(t, out, json.RawMessage(in)) {
			t.Errorf("round trip %s: got %s", in, out)
		}
	}
}

func TestMongoConversion_LargeIntegers(t *testing.T) {
	in := `{"big":9007199254740991}`
	out := roundTrip(t, in)
	if !jsonEqual(t, out, json.RawMessage(in)) {
		t.Errorf("got %s, want %s", out, in)
	}
}

func TestMongoConversion_Null(t *testing.T) {
	out := roundTrip(t, `null`)
	if string(out) != "null" {
		t.Errorf("null data: got %s", out)
	}
}

func TestJSONToBSON_Invalid(t *testing.T) {
	if _, err := jsonToBSON(json.RawMessage(`{"a":`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestOpenMongo_EmptyURI(t *testing.T) {
	if _, err := OpenMongo(context.Background(), "", "db", "c"); err == nil {
		t.Fatal("expected error for empty uri")
	}
}
