package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
)

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, ParseBrokers(" kafka-1:9092, ,kafka-2:9092"))
	assert.Nil(t, ParseBrokers(""))
}

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	_, _, err := CreateChannel(watermill.NopLogger{}, nil, "docflow-api")
	assert.ErrorIs(t, err, ErrNoBrokers)
}
