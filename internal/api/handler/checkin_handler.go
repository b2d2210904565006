package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"oqas/backend/internal/dto"
	"oqas/backend/internal/service"
	"oqas/backend/pkg/response"
)

// CheckinHandler 学生签到 HTTP 处理器（公开接口，无需登录）
type CheckinHandler struct {
	attendanceSvc service.AttendanceService
}

// NewCheckinHandler 创建 CheckinHandler
func NewCheckinHandler(attendanceSvc service.AttendanceService) *CheckinHandler {
	return &CheckinHandler{attendanceSvc: attendanceSvc}
}

// GetCheckinInfo 凭二维码 Token 换取签到页信息
// GET /api/v1/checkin?tk=<token>
func (h *CheckinHandler) GetCheckinInfo(c *gin.Context) {
	token := c.Query("tk")
	if token == "" {
		response.BadRequest(c, 14002, "缺少签到 Token")
		return
	}

	info, err := h.attendanceSvc.VerifyToken(c.Request.Context(), token)
	if err != nil {
		h.handleCheckinError(c, err)
		return
	}
	response.OK(c, info)
}

// SubmitCheckin 学生提交签到
// POST /api/v1/checkin
func (h *CheckinHandler) SubmitCheckin(c *gin.Context) {
	var req dto.SubmitCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	// 先验 Token 拿到场次，再走提交校验链
	info, err := h.attendanceSvc.VerifyToken(c.Request.Context(), req.Token)
	if err != nil {
		h.handleCheckinError(c, err)
		return
	}

	if err := h.attendanceSvc.Submit(c.Request.Context(), info.SessionID, req.StudentID, req.StudentName); err != nil {
		h.handleCheckinError(c, err)
		return
	}
	response.OK(c, gin.H{"session_id": info.SessionID})
}

func (h *CheckinHandler) handleCheckinError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		response.BadRequest(c, 14002, "签到链接无效")
	case errors.Is(err, service.ErrInvalidStudentID):
		response.BadRequest(c, 14001, "学号格式不正确")
	case errors.Is(err, service.ErrInvalidStudentName):
		response.BadRequest(c, 14003, "姓名至少需要 2 个字符")
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 13001, "签到场次不存在")
	case errors.Is(err, service.ErrSessionNotActive):
		response.BadRequest(c, 14005, "该签到场次已结束")
	case errors.Is(err, service.ErrAlreadyCheckedIn):
		response.BadRequest(c, 14006, "你已在本场次签到")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/checkin_handler.go
