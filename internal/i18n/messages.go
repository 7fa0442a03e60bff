package i18n

var catalog = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":            "请求参数错误",
		"error.unauthorized":           "请先登录",
		"error.forbidden":              "无权限执行该操作",
		"error.not_found":              "资源不存在",
		"error.internal":               "服务器内部错误",
		"error.too_many_requests":      "操作过于频繁，请稍后再试",
		"error.busy":                   "系统繁忙，请稍后重试",
		"error.storage_timeout":        "存储超时，请稍后重试",
		"error.user_not_found":         "用户不存在",
		"error.user_banned":            "账号已被封禁",
		"error.post_not_found":         "帖子不存在",
		"error.post_invalid":           "标题或内容不合法",
		"error.tag_not_found":          "标签不存在",
		"error.comment_not_found":      "评论不存在",
		"error.comment_invalid":        "评论内容不合法",
		"error.insufficient_balance":   "积分不足",
		"error.already_unlocked":       "该帖子已解锁",
		"error.unlock_not_required":    "该帖子无需解锁",
		"error.invite_invalid":         "邀请码无效",
		"error.invite_not_found":       "邀请码不存在",
		"error.invite_expired":         "邀请码已过期",
		"error.invite_redeemed":        "邀请码已被使用",
		"error.invite_self":            "不能使用自己发行的邀请码",
		"error.reaction_invalid":       "互动对象或类型不合法",
		"error.already_reacted":        "已经表态过了",
		"error.react_own":              "不能对自己的内容表态",
		"error.invalid_cursor":         "分页游标无效",
		"error.invalid_amount":         "积分数值无效",
		"error.invalid_entry":          "积分流水不合法",
		"error.invalid_role":           "角色不合法",
		"error.message_not_found":      "消息不存在",
		"error.points_config_invalid":  "积分配置不合法",
		"error.auth_header_missing":    "缺少认证信息",
		"error.auth_header_invalid":    "认证信息格式错误",
		"error.token_invalid":          "登录状态无效，请重新登录",
		"error.jwt_secret_missing":     "服务端未配置令牌密钥",
		"error.pid_invalid":            "帖子标识无效",
		"error.uid_invalid":            "用户标识无效",
		"error.message_id_invalid":     "消息标识无效",
		"error.invalid_input":          "输入不合法",
		"error.rate_limited":           "操作过于频繁，请在 %d 秒后重试",
		"error.rate_limit_unavailable": "限流服务不可用",
		"message.balance_changed":      "积分变动 %+d（%s），当前余额 %d",
		"message.post_unlocked":        "你的帖子《%s》被解锁，获得 %d 积分",
		"message.invite_redeemed":      "你发行的邀请码 %s 已被使用",
		"message.comment_reply":        "你的帖子《%s》有了新回复（#%d）",
		"reason.post_create":           "发帖",
		"reason.comment_create":        "评论",
		"reason.like_received":         "被点赞",
		"reason.dislike_received":      "被点踩",
		"reason.daily_sign_in":         "每日签到",
		"reason.invite_create":         "发行邀请码",
		"reason.post_unlock":           "解锁帖子",
		"reason.post_unlock_income":    "帖子被解锁",
		"reason.admin_adjust":          "管理员调整",
	},
	LocaleTW: {
		"error.bad_request":          "請求參數錯誤",
		"error.unauthorized":         "請先登入",
		"error.forbidden":            "無權限執行該操作",
		"error.not_found":            "資源不存在",
		"error.internal":             "伺服器內部錯誤",
		"error.too_many_requests":    "操作過於頻繁，請稍後再試",
		"error.busy":                 "系統繁忙，請稍後重試",
		"error.storage_timeout":      "儲存逾時，請稍後重試",
		"error.user_not_found":       "使用者不存在",
		"error.user_banned":          "帳號已被封鎖",
		"error.post_not_found":       "帖子不存在",
		"error.insufficient_balance": "積分不足",
		"error.unlock_not_required":  "該帖子無需解鎖",
		"error.invite_invalid":       "邀請碼無效",
		"error.invite_not_found":     "邀請碼不存在",
		"error.invite_expired":       "邀請碼已過期",
		"error.invite_redeemed":      "邀請碼已被使用",
		"error.already_reacted":      "已經表態過了",
		"error.token_invalid":        "登入狀態無效，請重新登入",
		"message.balance_changed":    "積分變動 %+d（%s），目前餘額 %d",
		"message.post_unlocked":      "你的帖子《%s》被解鎖，獲得 %d 積分",
		"message.invite_redeemed":    "你發行的邀請碼 %s 已被使用",
		"message.comment_reply":      "你的帖子《%s》有了新回覆（#%d）",
		"reason.daily_sign_in":       "每日簽到",
	},
	LocaleEN: {
		"error.bad_request":            "Invalid request parameters",
		"error.unauthorized":           "Please sign in first",
		"error.forbidden":              "Permission denied",
		"error.not_found":              "Resource not found",
		"error.internal":               "Internal server error",
		"error.too_many_requests":      "Too many requests, please retry later",
		"error.busy":                   "Service busy, please retry later",
		"error.storage_timeout":        "Storage timeout, please retry later",
		"error.user_not_found":         "User not found",
		"error.user_banned":            "Account is banned",
		"error.post_not_found":         "Post not found",
		"error.post_invalid":           "Invalid title or content",
		"error.tag_not_found":          "Tag not found",
		"error.comment_not_found":      "Comment not found",
		"error.comment_invalid":        "Invalid comment content",
		"error.insufficient_balance":   "Insufficient points",
		"error.already_unlocked":       "Post already unlocked",
		"error.unlock_not_required":    "Post does not require unlocking",
		"error.invite_invalid":         "Invalid invite code",
		"error.invite_not_found":       "Invite code not found",
		"error.invite_expired":         "Invite code expired",
		"error.invite_redeemed":        "Invite code already used",
		"error.invite_self":            "Cannot redeem your own invite code",
		"error.reaction_invalid":       "Invalid reaction target or kind",
		"error.already_reacted":        "Already reacted",
		"error.react_own":              "Cannot react to your own content",
		"error.invalid_cursor":         "Invalid history cursor",
		"error.invalid_amount":         "Invalid point amount",
		"error.invalid_entry":          "Invalid ledger entry",
		"error.invalid_role":           "Invalid role",
		"error.message_not_found":      "Message not found",
		"error.points_config_invalid":  "Invalid points config",
		"error.auth_header_missing":    "Authorization header is missing",
		"error.auth_header_invalid":    "Authorization header is malformed",
		"error.token_invalid":          "Session is invalid, please sign in again",
		"error.jwt_secret_missing":     "Token secret is not configured",
		"error.pid_invalid":            "Invalid post id",
		"error.uid_invalid":            "Invalid user id",
		"error.message_id_invalid":     "Invalid message id",
		"error.invalid_input":          "Invalid input",
		"error.rate_limited":           "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable": "Rate limiter unavailable",
		"message.balance_changed":      "Points %+d (%s), balance %d",
		"message.post_unlocked":        "Your post \"%s\" was unlocked, +%d points",
		"message.invite_redeemed":      "Your invite code %s has been redeemed",
		"message.comment_reply":        "New reply on your post \"%s\" (#%d)",
		"reason.post_create":           "post created",
		"reason.comment_create":        "comment created",
		"reason.like_received":         "like received",
		"reason.dislike_received":      "dislike received",
		"reason.daily_sign_in":         "daily sign-in",
		"reason.invite_create":         "invite issued",
		"reason.post_unlock":           "post unlocked",
		"reason.post_unlock_income":    "post unlock income",
		"reason.admin_adjust":          "admin adjustment",
	},
}
