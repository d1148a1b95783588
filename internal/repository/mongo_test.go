package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"caja/internal/domain"
)

func TestOrderFilter_Bson(t *testing.T) {
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	f := orderFilter(OrderFilter{Day: "2026-10-17", From: &from, Status: domain.OrderStatusOpen, Search: "sin-asignar"})

	assert.Equal(t, "2026-10-17", f["day"])
	assert.Equal(t, domain.OrderStatusOpen, f["status"])
	assert.Equal(t, bson.M{"$gte": from}, f["date"])

	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)
	rx := or[0].(bson.M)["orderId"].(bson.M)
	assert.Equal(t, "sin-asignar", rx["$regex"])
	assert.Equal(t, "i", rx["$options"])
}

func TestOrderFilter_Empty(t *testing.T) {
	assert.Empty(t, orderFilter(OrderFilter{}))
}

func TestIncrementPipeline(t *testing.T) {
	p := incrementPipeline("2026-10-17")
	require.Len(t, p, 1)

	// round trip through bson to make sure the update document is encodable
	raw, err := bson.Marshal(bson.D{{Key: "pipeline", Value: p}})
	require.NoError(t, err)

	doc := bson.Raw(raw)
	assert.Equal(t, "2026-10-17", doc.Lookup("pipeline", "0", "$set", "date").StringValue())
	cond := []string{"pipeline", "0", "$set", "orderNumber", "$cond"}
	assert.Equal(t, "$date", doc.Lookup(append(cond, "0", "$eq", "0")...).StringValue())
	assert.Equal(t, int32(1), doc.Lookup(append(cond, "2")...).Int32())
}
