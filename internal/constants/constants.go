package constants

// 用户状态常量
const (
	UserStatusActive = "active"
	UserStatusBanned = "banned"
)

// 用户角色常量
const (
	UserRoleMember    = "member"
	UserRoleModerator = "moderator"
	UserRoleAdmin     = "admin"
)

// 积分流水关联对象类型
const (
	LedgerRefTypePost    = "post"
	LedgerRefTypeComment = "comment"
	LedgerRefTypeInvite  = "invite"
	LedgerRefTypeSignIn  = "sign_in"
	LedgerRefTypeAdmin   = "admin"
)

// 互动对象与类型
const (
	ReactionTargetPost    = "post"
	ReactionTargetComment = "comment"
	ReactionKindLike      = "like"
	ReactionKindDislike   = "dislike"
)

// 站内消息类型
const (
	MessageKindBalanceChanged = "balance_changed"
	MessageKindPostUnlocked   = "post_unlocked"
	MessageKindInviteRedeemed = "invite_redeemed"
	MessageKindCommentReply   = "comment_reply"
)

// 队列名称
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskBalanceChanged = "points:balance_changed"
	TaskPostUnlocked   = "points:post_unlocked"
	TaskInviteRedeemed = "points:invite_redeemed"
	TaskCommentCreated = "forum:comment_created"
)

// 设置键
const (
	SettingKeyPointsConfig = "points_config"
)

// 积分配置字段（与站点配置字段保持一致）
const (
	SettingFieldPointPerPost          = "pointPerPost"
	SettingFieldPointPerPostByDay     = "pointPerPostByDay"
	SettingFieldPointPerComment       = "pointPerComment"
	SettingFieldPointPerCommentByDay  = "pointPerCommentByDay"
	SettingFieldPointPerLikeOrDislike = "pointPerLikeOrDislike"
	SettingFieldPointPerDaySignInMin  = "pointPerDaySignInMin"
	SettingFieldPointPerDaySignInMax  = "pointPerDaySignInMax"
	SettingFieldCreateInviteCodePoint = "createInviteCodePoint"
	SettingFieldInviteTTLHours        = "inviteTTLHours"
	SettingFieldLevelThresholds       = "levelThresholds"
	SettingFieldRoleRanks             = "roleRanks"
)

// 上下文键
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUserUID  = "user_uid"
	ContextKeyUserRole = "user_role"
)
