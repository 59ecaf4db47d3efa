package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishFileStored 发布 fv.file.stored 事件。
// 文件内容写入对象存储且元数据入库后调用，通知下游流程（如统计、索引等）。
// 可通过可选项 opts 注入 TraceID、Producer 等头部信息。
func PublishFileStored(pub message.Publisher, payload FileStoredPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFileStored, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFileStored, msg)
}

// PublishFileDeleted 发布 fv.file.deleted 事件。
func PublishFileDeleted(pub message.Publisher, payload FileDeletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFileDeleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFileDeleted, msg)
}

// PublishFileLockChanged 发布 fv.file.lock.changed 事件。
func PublishFileLockChanged(pub message.Publisher, payload FileLockChangedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFileLockChanged, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFileLockChanged, msg)
}

// PublishShareIssued 发布 fv.share.issued 事件。
func PublishShareIssued(pub message.Publisher, payload ShareIssuedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicShareIssued, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicShareIssued, msg)
}

// PublishShareRevoked 发布 fv.share.revoked 事件。
func PublishShareRevoked(pub message.Publisher, payload ShareRevokedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicShareRevoked, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicShareRevoked, msg)
}

// PublishShareRedeemed 发布 fv.share.redeemed 事件。
func PublishShareRedeemed(pub message.Publisher, payload ShareRedeemedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicShareRedeemed, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicShareRedeemed, msg)
}

// PublishAuditRecorded 发布 fv.audit.recorded 事件。
func PublishAuditRecorded(pub message.Publisher, payload AuditRecordedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAuditRecorded, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAuditRecorded, msg)
}

// ParseFileStored 将 Watermill 消息解析为强类型 Envelope（FileStoredPayload）。
func ParseFileStored(msg *message.Message) (Message[FileStoredPayload], error) {
	return ParseWatermillMessage[FileStoredPayload](msg)
}

// ParseAuditRecorded 将 Watermill 消息解析为强类型 Envelope（AuditRecordedPayload）。
func ParseAuditRecorded(msg *message.Message) (Message[AuditRecordedPayload], error) {
	return ParseWatermillMessage[AuditRecordedPayload](msg)
}
