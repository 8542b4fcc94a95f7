package messaging

import "github.com/segmentio/kafka-go"

// HeaderCarrier adapts Kafka record headers to a TextMapCarrier so trace context
// rides along with each record.
type HeaderCarrier struct {
	headers *[]kafka.Header
}

func NewHeaderCarrier(msg *kafka.Message) HeaderCarrier {
	return HeaderCarrier{headers: &msg.Headers}
}

func (c HeaderCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c HeaderCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, len(*c.headers))
	for i, h := range *c.headers {
		keys[i] = h.Key
	}
	return keys
}

func headerMap(headers []kafka.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
