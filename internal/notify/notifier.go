package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TopicEnrollmentCreated recebe um evento por matrícula nova; o consumidor envia o e-mail de boas-vindas
const TopicEnrollmentCreated = "enrollment.created"

// Welcome é o evento de boas-vindas de uma matrícula recém-criada
type Welcome struct {
	EnrollmentID string    `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	ProductID    string    `json:"product_id"`
	ProductTitle string    `json:"product_title"`
	MembersURL   string    `json:"members_url"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// MessageWriter é o subconjunto do kafka.Writer usado aqui
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publica eventos de boas-vindas no Kafka
type KafkaNotifier struct {
	writer     MessageWriter
	membersURL string
	logger     *zap.Logger
}

// NewKafkaWriter cria o writer do tópico de matrículas
func NewKafkaWriter(brokers []string, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        TopicEnrollmentCreated,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
		Logger:       zap.NewStdLog(logger.With(zap.String("kafka_component", "producer"))),
		ErrorLogger:  zap.NewStdLog(logger.With(zap.String("kafka_component", "producer_errors"))),
	}
}

// NewKafkaNotifier cria uma nova instância de KafkaNotifier
func NewKafkaNotifier(writer MessageWriter, frontendURL string, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer:     writer,
		membersURL: MembersURL(frontendURL),
		logger:     logger,
	}
}

// NotifyEnrollment publica o evento usando o ID da matrícula como chave
func (n *KafkaNotifier) NotifyEnrollment(ctx context.Context, w Welcome) error {
	if w.MembersURL == "" {
		w.MembersURL = n.membersURL
	}

	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encoding welcome event: %w", err)
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(w.EnrollmentID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publishing welcome event: %w", err)
	}

	n.logger.Debug("Evento de boas-vindas publicado", zap.String("enrollment_id", w.EnrollmentID))
	return nil
}

// Close fecha o writer
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// LogNotifier apenas registra a notificação; usado quando não há brokers configurados
type LogNotifier struct {
	membersURL string
	logger     *zap.Logger
}

// NewLogNotifier cria uma nova instância de LogNotifier
func NewLogNotifier(frontendURL string, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{
		membersURL: MembersURL(frontendURL),
		logger:     logger,
	}
}

// NotifyEnrollment registra a notificação que seria enviada
func (n *LogNotifier) NotifyEnrollment(_ context.Context, w Welcome) error {
	n.logger.Warn("Notificações não configuradas; boas-vindas não enviadas",
		zap.String("enrollment_id", w.EnrollmentID),
		zap.String("product_title", w.ProductTitle),
		zap.String("members_url", n.membersURL),
	)
	return nil
}

// Close não faz nada
func (n *LogNotifier) Close() error { return nil }

// MembersURL é a área de membros do frontend
func MembersURL(frontendURL string) string {
	return strings.TrimRight(frontendURL, "/") + "/membros"
}
