package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EmailQueue      = "email_queue"
	SchedulingQueue = "scheduling_queue"
)

// Declare 声明一个持久化队列，api、worker、mail 启动时都会调用，重复声明是幂等的
func Declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,  // 队列名称
		true,  // 是否持久化
		false, // 是否自动删除，设置为 false 可以避免没有消费者的时候自动删除队列
		false, // 是否独占，即是否允许多个消费者访问这个队列
		false, // 是否不等待，设置为 false，即等待 RabbitMQ 确认队列是否创建成功
		nil,   // 额外参数
	)
}

// DeclareAll 声明系统用到的全部队列
func DeclareAll(ch *amqp.Channel) error {
	for _, name := range []string{EmailQueue, SchedulingQueue} {
		if _, err := Declare(ch, name); err != nil {
			return fmt.Errorf("无法声明队列 %s: %w", name, err)
		}
	}
	return nil
}

// PublishJSON 把 v 序列化为 JSON 后投递到默认交换机上名为 name 的队列，返回消息 ID 方便排查日志
func PublishJSON(ctx context.Context, ch *amqp.Channel, name string, v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	messageID := uuid.New().String()
	return messageID, ch.PublishWithContext(
		ctx,
		"",
		name,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Body:         body,
		},
	)
}

// Consume 以手动确认的方式消费队列，每次只预取一条消息
func Consume(ch *amqp.Channel, name string) (<-chan amqp.Delivery, error) {
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, err
	}

	return ch.Consume(
		name,  // 队列
		"",    // 消费者标识，设置为空字符串，表示由 RabbitMQ 自动分配
		false, // 是否自动确认消息
		false, // 是否独占队列
		false, // RabbitMQ 不支持 noLocal，必须设置为 false
		false, // 是否不等待，等待 RabbitMQ 响应
		nil,   // 额外参数
	)
}
