package events

import (
	"context"
	"encoding/json"
	"strconv"

	"splitbill_backend/pkg/logger"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// KafkaPublisher 基于 sarama 异步生产者，按请求 ID 分区保证单个请求的事件有序
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	done     chan struct{}
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = false
	config.Producer.Return.Errors = true
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		done:     make(chan struct{}),
	}
	go p.drainErrors()
	return p, nil
}

func (p *KafkaPublisher) drainErrors() {
	defer close(p.done)
	for err := range p.producer.Errors() {
		logger.Log.Error("kafka publish failed",
			zap.String("topic", p.topic),
			zap.Error(err.Err),
		)
	}
}

func (p *KafkaPublisher) PublishPaymentRequest(ctx context.Context, evt PaymentRequestEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(evt.RequestID), 10)),
		Value: sarama.ByteEncoder(value),
	}

	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *KafkaPublisher) Close() error {
	p.producer.AsyncClose()
	<-p.done
	return nil
}
