package queue

import "CoachCheck/storage/mq"

const (
	// DelayedExchange 依赖 rabbitmq_delayed_message_exchange 插件
	DelayedExchange = "checkin.delayed"
	EventsExchange  = "checkin.events"

	WindowReminderQueue   = "checkin.window.reminder"
	OccurrenceMissedQueue = "checkin.occurrence.missed"

	windowReminderRoutingKey   = "checkin.window.reminder"
	occurrenceMissedRoutingKey = "checkin.occurrence.missed"
)

// Topology 打卡相关的交换机与队列
func Topology() mq.Topology {
	return mq.Topology{
		Exchanges: []mq.Exchange{
			{Name: DelayedExchange, Kind: "direct", Delayed: true},
			{Name: EventsExchange, Kind: "topic"},
		},
		Bindings: []mq.Binding{
			{Queue: WindowReminderQueue, Exchange: DelayedExchange, RoutingKey: windowReminderRoutingKey},
			{Queue: OccurrenceMissedQueue, Exchange: EventsExchange, RoutingKey: occurrenceMissedRoutingKey},
		},
	}
}

// DeclareTopology 启动时声明拓扑（worker 与 scheduler 都会调用）
func DeclareTopology() error {
	return mq.Declare(Topology())
}
